package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// FacultyRepository resolves inbound sender handles to faculty rows.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByPhone returns the faculty owning the given contact handle.
func (r *FacultyRepository) FindByPhone(ctx context.Context, phone string) (*models.Faculty, error) {
	query := `SELECT id, name, phone, created_at FROM faculties WHERE phone = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, phone); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindByID loads one faculty row.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	query := `SELECT id, name, phone, created_at FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, fmt.Errorf("find faculty: %w", err)
	}
	return &faculty, nil
}
