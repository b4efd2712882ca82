package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// ChatRepository stores the append-only conversation log per faculty.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs the repository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append persists one exchange row.
func (r *ChatRepository) Append(ctx context.Context, exchange *models.ChatExchange) error {
	if exchange.ID == "" {
		exchange.ID = uuid.NewString()
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO chat_exchanges (id, faculty_id, direction, body, route, decision, channel_message_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, exchange.ID, exchange.FacultyID, exchange.Direction,
		exchange.Body, exchange.Route, exchange.Decision, exchange.ChannelMessageID, exchange.CreatedAt); err != nil {
		return fmt.Errorf("append chat exchange: %w", err)
	}
	return nil
}

// Recent returns the newest n exchanges for a faculty, oldest first, ready
// to be replayed as conversation context.
func (r *ChatRepository) Recent(ctx context.Context, facultyID string, n int) ([]models.ChatExchange, error) {
	if n <= 0 {
		n = 6
	}
	query := `SELECT id, faculty_id, direction, body, route, decision, channel_message_id, created_at
FROM chat_exchanges WHERE faculty_id = $1 ORDER BY created_at DESC LIMIT $2`
	var rows []models.ChatExchange
	if err := r.db.SelectContext(ctx, &rows, query, facultyID, n); err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
