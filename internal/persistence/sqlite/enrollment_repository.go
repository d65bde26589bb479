package sqlite

import (
	"context"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
)

// EnrollmentRepository implements persistence.EnrollmentRepository using
// SQLite. Enrollment records are never deleted; withdrawals are recorded as
// status transitions.
type EnrollmentRepository struct {
	pool *ConnectionPool
}

// NewEnrollmentRepository creates a new SQLite enrollment repository.
func NewEnrollmentRepository(pool *ConnectionPool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// CreateEnrollment inserts an enrollment record.
func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	if enrollment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO enrollments (id, section_id, student_id, status, requested_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		enrollment.ID,
		enrollment.SectionID,
		enrollment.StudentID,
		enrollment.Status,
		enrollment.RequestedAt.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateEnrollment persists a status transition.
func (r *EnrollmentRepository) UpdateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	query := "UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ?"
	result, err := r.pool.db.ExecContext(ctx, query,
		enrollment.Status,
		time.Now().UTC().Format(time.RFC3339),
		enrollment.ID,
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
	return nil
}

// GetEnrollment loads one enrollment by id.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error) {
	query := `
		SELECT id, section_id, student_id, status, requested_at, created_at, updated_at
		FROM enrollments WHERE id = ?
	`
	row := r.pool.db.QueryRowContext(ctx, query, id)
	return scanEnrollment(row)
}

// ListEnrollmentsForSection returns a section's enrollments in request order.
// Insertion order is preserved for equal timestamps via created_at and id.
func (r *EnrollmentRepository) ListEnrollmentsForSection(ctx context.Context, sectionID string) ([]persistence.Enrollment, error) {
	query := `
		SELECT id, section_id, student_id, status, requested_at, created_at, updated_at
		FROM enrollments WHERE section_id = ?
		ORDER BY requested_at, created_at, id
	`
	return r.list(ctx, query, sectionID)
}

// ListEnrollmentsForStudent returns a student's enrollments across sections.
func (r *EnrollmentRepository) ListEnrollmentsForStudent(ctx context.Context, studentID string) ([]persistence.Enrollment, error) {
	query := `
		SELECT id, section_id, student_id, status, requested_at, created_at, updated_at
		FROM enrollments WHERE student_id = ?
		ORDER BY requested_at, created_at, id
	`
	return r.list(ctx, query, studentID)
}

func (r *EnrollmentRepository) list(ctx context.Context, query string, arg any) ([]persistence.Enrollment, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	enrollments := make([]persistence.Enrollment, 0)
	for rows.Next() {
		enrollment, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return enrollments, nil
}

func scanEnrollment(row rowScanner) (persistence.Enrollment, error) {
	var (
		enrollment  persistence.Enrollment
		requestedAt string
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(&enrollment.ID, &enrollment.SectionID, &enrollment.StudentID, &enrollment.Status, &requestedAt, &createdAt, &updatedAt); err != nil {
		return persistence.Enrollment{}, mapError(err)
	}

	var err error
	if enrollment.RequestedAt, err = time.Parse(time.RFC3339, requestedAt); err != nil {
		return persistence.Enrollment{}, err
	}
	if enrollment.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Enrollment{}, err
	}
	if enrollment.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Enrollment{}, err
	}
	return enrollment, nil
}
