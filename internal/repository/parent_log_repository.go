package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// ParentLogRepository records every parent notification attempt for audit.
type ParentLogRepository struct {
	db *sqlx.DB
}

// NewParentLogRepository constructs the repository.
func NewParentLogRepository(db *sqlx.DB) *ParentLogRepository {
	return &ParentLogRepository{db: db}
}

// Create inserts one attempt row.
func (r *ParentLogRepository) Create(ctx context.Context, log *models.ParentMessageLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO parent_message_logs (id, student_id, destination, body, status, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.StudentID, log.Destination,
		log.Body, log.Status, log.Error, log.CreatedAt); err != nil {
		return fmt.Errorf("log parent message: %w", err)
	}
	return nil
}
