package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// StudentRepository persists class rosters.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns the full current roster ordered by register number.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	query := `SELECT id, class_id, register_no, name, phone, parent_phone, created_at
FROM students WHERE class_id = $1 ORDER BY register_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ExistsByRegisterNo reports whether the register number is already used
// within the class.
func (r *StudentRepository) ExistsByRegisterNo(ctx context.Context, classID, registerNo string) (bool, error) {
	query := `SELECT COUNT(*) FROM students WHERE class_id = $1 AND LOWER(register_no) = LOWER($2)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, registerNo); err != nil {
		return false, fmt.Errorf("check register number: %w", err)
	}
	return count > 0, nil
}

// Create inserts a single student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	query := `INSERT INTO students (id, class_id, register_no, name, phone, parent_phone, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.ClassID, student.RegisterNo,
		student.Name, student.Phone, student.ParentPhone, student.CreatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BulkInsert inserts many students in one transaction; the whole batch
// rolls back on the first failure.
func (r *StudentRepository) BulkInsert(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk student insert: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback() //nolint:errcheck
		}
	}()
	query := `INSERT INTO students (id, class_id, register_no, name, phone, parent_phone, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i := range students {
		s := &students[i]
		prepareStudent(s)
		if _, err := tx.ExecContext(ctx, query, s.ID, s.ClassID, s.RegisterNo, s.Name, s.Phone, s.ParentPhone, s.CreatedAt); err != nil {
			return fmt.Errorf("bulk insert student %s: %w", s.RegisterNo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk student insert: %w", err)
	}
	commit = true
	return nil
}

func prepareStudent(s *models.Student) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}
