package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// SubjectRepository persists subjects scoped to class and teaching faculty.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByName matches a subject case-insensitively within class and faculty.
func (r *SubjectRepository) FindByName(ctx context.Context, classID, facultyID, name string) (*models.Subject, error) {
	query := `SELECT id, class_id, faculty_id, name, created_at FROM subjects
WHERE class_id = $1 AND faculty_id = $2 AND LOWER(name) = LOWER($3) LIMIT 1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, classID, facultyID, name); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a subject row.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO subjects (id, class_id, faculty_id, name, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, subject.ID, subject.ClassID, subject.FacultyID, subject.Name, subject.CreatedAt); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}
