package models

import (
	"encoding/json"
	"time"
)

// ExchangeDirection marks a chat row as inbound or outbound.
type ExchangeDirection string

const (
	DirectionIncoming ExchangeDirection = "incoming"
	DirectionOutgoing ExchangeDirection = "outgoing"
)

// ChatExchange is one inbound or outbound message tied to a faculty.
// Outgoing rows may carry the raw classifier decision for that turn.
type ChatExchange struct {
	ID               string            `db:"id" json:"id"`
	FacultyID        string            `db:"faculty_id" json:"faculty_id"`
	Direction        ExchangeDirection `db:"direction" json:"direction"`
	Body             string            `db:"body" json:"body"`
	Route            *string           `db:"route" json:"route,omitempty"`
	Decision         json.RawMessage   `db:"decision" json:"decision,omitempty"`
	ChannelMessageID *string           `db:"channel_message_id" json:"channel_message_id,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}

// HistoryTurn is the bounded conversation context handed to the classifier.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InboundEvent is one message event relayed by the messaging channel webhook.
type InboundEvent struct {
	SenderHandle     string      `json:"sender_handle"`
	ChannelMessageID string      `json:"channel_message_id"`
	Text             string      `json:"text"`
	Attachment       *Attachment `json:"attachment,omitempty"`
	ReceivedAt       time.Time   `json:"received_at"`
}

// Attachment references an uploaded document on the channel's media store.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
	MediaID  string `json:"media_id"`
}
