package sqlite

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
)

// RosterRepository implements persistence.RosterRepository using SQLite.
type RosterRepository struct {
	pool *ConnectionPool
}

// NewRosterRepository creates a new SQLite roster repository.
func NewRosterRepository(pool *ConnectionPool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// CreatePerson inserts a person record.
func (r *RosterRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO people (id, display_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		person.ID,
		person.DisplayName,
		person.Role,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetPerson loads one person by id.
func (r *RosterRepository) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	query := "SELECT id, display_name, role, created_at, updated_at FROM people WHERE id = ?"
	row := r.pool.db.QueryRowContext(ctx, query, id)

	var (
		person    persistence.Person
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&person.ID, &person.DisplayName, &person.Role, &createdAt, &updatedAt); err != nil {
		return persistence.Person{}, mapError(err)
	}

	var err error
	if person.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Person{}, err
	}
	if person.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Person{}, err
	}
	return person, nil
}

// MissingPersonIDs returns the subset of ids with no matching person record,
// sorted for stable reporting.
func (r *RosterRepository) MissingPersonIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := "SELECT id FROM people WHERE id IN (" + placeholders + ")"
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError(err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	missing := make([]string, 0)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	sort.Strings(missing)
	if len(missing) == 0 {
		return nil, nil
	}
	return missing, nil
}

// LinkGuardian records that a guardian may view a student's schedule.
func (r *RosterRepository) LinkGuardian(ctx context.Context, guardianID, studentID string) error {
	query := "INSERT INTO guardian_links (guardian_id, student_id) VALUES (?, ?)"
	if _, err := r.pool.db.ExecContext(ctx, query, guardianID, studentID); err != nil {
		return mapError(err)
	}
	return nil
}

// StudentIDsForGuardian returns the students linked to a guardian.
func (r *RosterRepository) StudentIDsForGuardian(ctx context.Context, guardianID string) ([]string, error) {
	query := "SELECT student_id FROM guardian_links WHERE guardian_id = ? ORDER BY student_id"
	rows, err := r.pool.db.QueryContext(ctx, query, guardianID)
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
	return ids, nil
}
