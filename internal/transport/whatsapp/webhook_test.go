package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventsTextMessage(t *testing.T) {
	raw := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"messages": [{
						"from": "919876543210",
						"id": "wamid.ABC123",
						"type": "text",
						"text": {"body": "mark absentees 1,2 for 3/4 CSIT"}
					}]
				}
			}]
		}]
	}`
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	events := ParseEvents(payload)
	require.Len(t, events, 1)
	assert.Equal(t, "919876543210", events[0].SenderHandle)
	assert.Equal(t, "wamid.ABC123", events[0].ChannelMessageID)
	assert.Equal(t, "mark absentees 1,2 for 3/4 CSIT", events[0].Text)
	assert.Nil(t, events[0].Attachment)
}

func TestParseEventsDocumentMessage(t *testing.T) {
	payload := WebhookPayload{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []Message{{
						From: "919876543210",
						ID:   "wamid.DOC1",
						Type: "document",
						Document: &Document{
							ID:       "media-9",
							Filename: "students.csv",
							MimeType: "text/csv",
							Caption:  "add these students to 3/4 CSIT",
						},
					}},
				},
			}},
		}},
	}

	events := ParseEvents(payload)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Attachment)
	assert.Equal(t, "media-9", events[0].Attachment.MediaID)
	assert.Equal(t, "add these students to 3/4 CSIT", events[0].Text)
}

func TestParseEventsSkipsStatusOnlyChanges(t *testing.T) {
	payload := WebhookPayload{
		Entry: []Entry{{Changes: []Change{{Value: ChangeValue{}}}}},
	}
	assert.Empty(t, ParseEvents(payload))
}
