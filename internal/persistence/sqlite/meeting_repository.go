package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
)

const dateLayout = "2006-01-02"

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	pool *ConnectionPool
}

// NewMeetingRepository creates a new SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

// CreateMeeting inserts a meeting with its teachers and exception dates.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO meetings (id, section_id, title, start_time, end_time, is_recurring, recurrence, room_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.Exec(query,
			meeting.ID,
			meeting.SectionID,
			meeting.Title,
			meeting.Start.UTC().Format(time.RFC3339),
			meeting.End.UTC().Format(time.RFC3339),
			boolToInt(meeting.IsRecurring),
			nullString(meeting.Recurrence),
			nullString(meeting.RoomID),
			meeting.CreatedAt.Format(time.RFC3339),
			meeting.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}
		if err := insertTeachers(tx, meeting.ID, meeting.TeacherIDs); err != nil {
			return err
		}
		return insertExceptions(tx, meeting.ID, meeting.ExceptionDates)
	})
}

// UpdateMeeting replaces the meeting row and rewrites its teachers and
// exception dates.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID == "" {
		return persistence.ErrConstraintViolation
	}

	meeting.UpdatedAt = time.Now().UTC()

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE meetings
			SET section_id = ?, title = ?, start_time = ?, end_time = ?, is_recurring = ?, recurrence = ?, room_id = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.Exec(query,
			meeting.SectionID,
			meeting.Title,
			meeting.Start.UTC().Format(time.RFC3339),
			meeting.End.UTC().Format(time.RFC3339),
			boolToInt(meeting.IsRecurring),
			nullString(meeting.Recurrence),
			nullString(meeting.RoomID),
			meeting.UpdatedAt.Format(time.RFC3339),
			meeting.ID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.Exec("DELETE FROM meeting_teachers WHERE meeting_id = ?", meeting.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec("DELETE FROM meeting_exceptions WHERE meeting_id = ?", meeting.ID); err != nil {
			return mapError(err)
		}
		if err := insertTeachers(tx, meeting.ID, meeting.TeacherIDs); err != nil {
			return err
		}
		return insertExceptions(tx, meeting.ID, meeting.ExceptionDates)
	})
}

// GetMeeting loads one meeting with its teachers and exception dates.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	query := `
		SELECT id, section_id, title, start_time, end_time, is_recurring, recurrence, room_id, created_at, updated_at
		FROM meetings WHERE id = ?
	`
	meeting, err := scanMeeting(r.pool.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Meeting{}, err
	}

	if err := r.attachRelations(ctx, &meeting); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}

// ListMeetings enumerates meetings matching the filter, ordered by start time
// and then id.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT DISTINCT m.id, m.section_id, m.title, m.start_time, m.end_time, m.is_recurring, m.recurrence, m.room_id, m.created_at, m.updated_at
		FROM meetings m
	`)
	args := make([]any, 0, 4)
	conditions := make([]string, 0, 3)

	if filter.TeacherID != "" {
		query.WriteString(" JOIN meeting_teachers mt ON mt.meeting_id = m.id")
		conditions = append(conditions, "mt.teacher_id = ?")
		args = append(args, filter.TeacherID)
	}
	if len(filter.SectionIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.SectionIDs)), ", ")
		conditions = append(conditions, fmt.Sprintf("m.section_id IN (%s)", placeholders))
		for _, sectionID := range filter.SectionIDs {
			args = append(args, sectionID)
		}
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "m.end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "m.start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}

	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY m.start_time, m.id")

	rows, err := r.pool.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	meetings := make([]persistence.Meeting, 0)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range meetings {
		if err := r.attachRelations(ctx, &meetings[i]); err != nil {
			return nil, err
		}
	}
	return meetings, nil
}

// DeleteMeeting removes a meeting; teachers and exceptions cascade.
func (r *MeetingRepository) DeleteMeeting(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM meetings WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting     persistence.Meeting
		start       string
		end         string
		isRecurring int
		recurrence  sql.NullString
		roomID      sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&meeting.ID, &meeting.SectionID, &meeting.Title, &start, &end, &isRecurring, &recurrence, &roomID, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}

	if meeting.Start, err = time.Parse(time.RFC3339, start); err != nil {
		return persistence.Meeting{}, fmt.Errorf("invalid start time: %w", err)
	}
	if meeting.End, err = time.Parse(time.RFC3339, end); err != nil {
		return persistence.Meeting{}, fmt.Errorf("invalid end time: %w", err)
	}
	if meeting.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Meeting{}, fmt.Errorf("invalid created at: %w", err)
	}
	if meeting.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Meeting{}, fmt.Errorf("invalid updated at: %w", err)
	}

	meeting.IsRecurring = isRecurring != 0
	if recurrence.Valid {
		meeting.Recurrence = &recurrence.String
	}
	if roomID.Valid {
		meeting.RoomID = &roomID.String
	}
	return meeting, nil
}

func (r *MeetingRepository) attachRelations(ctx context.Context, meeting *persistence.Meeting) error {
	teachers, err := r.teacherIDs(ctx, meeting.ID)
	if err != nil {
		return err
	}
	meeting.TeacherIDs = teachers

	exceptions, err := r.exceptionDates(ctx, meeting.ID)
	if err != nil {
		return err
	}
	meeting.ExceptionDates = exceptions
	return nil
}

func (r *MeetingRepository) teacherIDs(ctx context.Context, meetingID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT teacher_id FROM meeting_teachers WHERE meeting_id = ?", meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MeetingRepository) exceptionDates(ctx context.Context, meetingID string) ([]time.Time, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT exception_date FROM meeting_exceptions WHERE meeting_id = ? ORDER BY exception_date", meetingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, mapError(err)
		}
		date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid exception date: %w", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return dates, nil
}

func insertTeachers(tx *sql.Tx, meetingID string, teacherIDs []string) error {
	for _, teacherID := range teacherIDs {
		if _, err := tx.Exec("INSERT INTO meeting_teachers (meeting_id, teacher_id) VALUES (?, ?)", meetingID, teacherID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func insertExceptions(tx *sql.Tx, meetingID string, dates []time.Time) error {
	for _, date := range dates {
		// De-duplicated by the primary key; repeating an exception date is
		// a no-op, matching the idempotent exception semantics.
		formatted := date.Format(dateLayout)
		if _, err := tx.Exec("INSERT OR IGNORE INTO meeting_exceptions (meeting_id, exception_date) VALUES (?, ?)", meetingID, formatted); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
