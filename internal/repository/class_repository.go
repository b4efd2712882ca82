package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// ClassRepository persists classes scoped to their owning faculty.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByName resolves a free-text class name for one faculty. Exact
// case-insensitive matches win over substring matches; among several
// substring matches the first by name wins.
func (r *ClassRepository) FindByName(ctx context.Context, facultyID, nameQuery string) (*models.Class, error) {
	exact := `SELECT id, faculty_id, name, created_at FROM classes
WHERE faculty_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	var class models.Class
	err := r.db.GetContext(ctx, &class, exact, facultyID, nameQuery)
	if err == nil {
		return &class, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find class by name: %w", err)
	}

	fuzzy := `SELECT id, faculty_id, name, created_at FROM classes
WHERE faculty_id = $1 AND name ILIKE '%' || $2 || '%' ORDER BY name LIMIT 1`
	if err := r.db.GetContext(ctx, &class, fuzzy, facultyID, nameQuery); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByName reports whether the faculty already has a class of this name.
func (r *ClassRepository) ExistsByName(ctx context.Context, facultyID, name string) (bool, error) {
	query := `SELECT COUNT(*) FROM classes WHERE faculty_id = $1 AND LOWER(name) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, facultyID, name); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new class row.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO classes (id, faculty_id, name, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.FacultyID, class.Name, class.CreatedAt); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}
