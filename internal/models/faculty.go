package models

import "time"

// Faculty is the authenticated party issuing chat commands; owner of classes.
// Inbound routing resolves the WhatsApp sender handle to a faculty row.
type Faculty struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
