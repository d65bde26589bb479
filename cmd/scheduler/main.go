package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/campus-scheduler/internal/application"
	"github.com/example/campus-scheduler/internal/config"
	httptransport "github.com/example/campus-scheduler/internal/http"
	"github.com/example/campus-scheduler/internal/persistence/sqlite"
	"github.com/example/campus-scheduler/internal/recurrence"
	"github.com/example/campus-scheduler/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	meetingRepo := sqlite.NewMeetingRepository(pool)
	roomRepo := sqlite.NewRoomRepository(pool)
	rosterRepo := sqlite.NewRosterRepository(pool)
	sectionRepo := sqlite.NewSectionRepository(pool)
	enrollmentRepo := sqlite.NewEnrollmentRepository(pool)

	engine := recurrence.NewEngine(cfg.Timezone)
	expander := scheduler.NewExpander(engine)
	detector := scheduler.NewDetector(expander, cfg.ConflictHorizon)
	agendaCache := application.NewOccurrenceCache(cfg.AgendaCacheTTL, cfg.AgendaCacheSize, now)

	identityService := application.NewIdentityService(rosterRepo)
	meetingService := application.NewMeetingService(meetingRepo, rosterRepo, roomRepo, sectionRepo, detector, agendaCache, idGenerator, now, logger)
	enrollmentService := application.NewEnrollmentService(sectionRepo, enrollmentRepo, agendaCache, idGenerator, now, logger)
	agendaService := application.NewAgendaService(meetingRepo, enrollmentRepo, rosterRepo, expander, agendaCache, now)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Meetings: httptransport.NewMeetingHandler(meetingService, logger),
		Sections: httptransport.NewSectionHandler(enrollmentService, logger),
		Agenda:   httptransport.NewAgendaHandler(agendaService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireIdentity(identityService, logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("campus scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
