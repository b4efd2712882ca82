package whatsapp

import (
	"time"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// ParseEvents flattens a webhook payload into inbound events. Status-only
// notifications (delivery receipts) carry no messages and yield nothing.
func ParseEvents(payload WebhookPayload) []models.InboundEvent {
	events := make([]models.InboundEvent, 0)
	now := time.Now().UTC()
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				event := models.InboundEvent{
					SenderHandle:     msg.From,
					ChannelMessageID: msg.ID,
					ReceivedAt:       now,
				}
				if msg.Text != nil {
					event.Text = msg.Text.Body
				}
				if msg.Document != nil {
					event.Attachment = &models.Attachment{
						MimeType: msg.Document.MimeType,
						Filename: msg.Document.Filename,
						MediaID:  msg.Document.ID,
					}
					if event.Text == "" {
						event.Text = msg.Document.Caption
					}
				}
				if event.SenderHandle == "" || event.ChannelMessageID == "" {
					continue
				}
				events = append(events, event)
			}
		}
	}
	return events
}
