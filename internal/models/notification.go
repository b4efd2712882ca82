package models

import "time"

// DeliveryStatus is the outcome of one parent notification attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// ParentMessageLog is one row per outbound parent notification attempt.
type ParentMessageLog struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	Destination string         `db:"destination" json:"destination"`
	Body        string         `db:"body" json:"body"`
	Status      DeliveryStatus `db:"status" json:"status"`
	Error       *string        `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// BroadcastTally reports how a notification batch went.
type BroadcastTally struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}
