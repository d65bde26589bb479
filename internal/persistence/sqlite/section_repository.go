package sqlite

import (
	"context"
	"time"

	"github.com/example/campus-scheduler/internal/persistence"
)

// SectionRepository implements persistence.SectionRepository using SQLite.
type SectionRepository struct {
	pool *ConnectionPool
}

// NewSectionRepository creates a new SQLite section repository.
func NewSectionRepository(pool *ConnectionPool) *SectionRepository {
	return &SectionRepository{pool: pool}
}

// CreateSection inserts a section.
func (r *SectionRepository) CreateSection(ctx context.Context, section persistence.Section) error {
	if section.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO sections (id, name, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.pool.db.ExecContext(ctx, query,
		section.ID,
		section.Name,
		section.Capacity,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// UpdateSection updates a section's name and capacity.
func (r *SectionRepository) UpdateSection(ctx context.Context, section persistence.Section) error {
	query := `
		UPDATE sections SET name = ?, capacity = ?, updated_at = ? WHERE id = ?
	`
	result, err := r.pool.db.ExecContext(ctx, query,
		section.Name,
		section.Capacity,
		time.Now().UTC().Format(time.RFC3339),
		section.ID,
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

// GetSection loads one section by id.
func (r *SectionRepository) GetSection(ctx context.Context, id string) (persistence.Section, error) {
	query := "SELECT id, name, capacity, created_at, updated_at FROM sections WHERE id = ?"
	row := r.pool.db.QueryRowContext(ctx, query, id)
	return scanSection(row)
}

// ListSections enumerates all sections ordered by name.
func (r *SectionRepository) ListSections(ctx context.Context) ([]persistence.Section, error) {
	query := "SELECT id, name, capacity, created_at, updated_at FROM sections ORDER BY name, id"
	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sections := make([]persistence.Section, 0)
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return sections, nil
}

func scanSection(row rowScanner) (persistence.Section, error) {
	var (
		section   persistence.Section
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&section.ID, &section.Name, &section.Capacity, &createdAt, &updatedAt); err != nil {
		return persistence.Section{}, mapError(err)
	}

	var err error
	if section.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Section{}, err
	}
	if section.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.Section{}, err
	}
	return section, nil
}
