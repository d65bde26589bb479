package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	Timezone        *time.Location
	ConflictHorizon time.Duration
	AgendaCacheTTL  time.Duration
	AgendaCacheSize int
}

// Load parses configuration values from the current process environment.
//
// An optional .env file is read first; real environment variables win over
// file entries. Defaults apply to every key, and malformed values are
// reported together rather than one at a time.
func Load() (Config, error) {
	// Missing .env files are expected outside local development.
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:campus.db?_foreign_keys=on",
		Timezone:        time.UTC,
		ConflictHorizon: 90 * 24 * time.Hour,
		AgendaCacheTTL:  30 * time.Second,
		AgendaCacheSize: 128,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CAMPUS_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CAMPUS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CAMPUS_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tzValue := strings.TrimSpace(os.Getenv("CAMPUS_TIMEZONE")); tzValue != "" {
		loc, err := time.LoadLocation(tzValue)
		if err != nil {
			invalid = append(invalid, "CAMPUS_TIMEZONE")
		} else {
			cfg.Timezone = loc
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("CAMPUS_CONFLICT_HORIZON")); horizonValue != "" {
		horizon, err := time.ParseDuration(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "CAMPUS_CONFLICT_HORIZON")
		} else {
			cfg.ConflictHorizon = horizon
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("CAMPUS_AGENDA_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "CAMPUS_AGENDA_CACHE_TTL")
		} else {
			cfg.AgendaCacheTTL = ttl
		}
	}

	if sizeValue := strings.TrimSpace(os.Getenv("CAMPUS_AGENDA_CACHE_SIZE")); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "CAMPUS_AGENDA_CACHE_SIZE")
		} else {
			cfg.AgendaCacheSize = size
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
