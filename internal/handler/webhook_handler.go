package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/transport/whatsapp"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/jobs"
)

// WebhookHandler terminates the WhatsApp webhook. Verification handshakes
// are answered inline; message events are acknowledged immediately and
// processed by the background queue so the channel never sees a slow reply.
type WebhookHandler struct {
	verifyToken string
	queue       *jobs.Queue
	logger      *zap.Logger
}

// NewWebhookHandler constructs the webhook handler.
func NewWebhookHandler(verifyToken string, queue *jobs.Queue, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{verifyToken: verifyToken, queue: queue, logger: logger}
}

// Verify godoc
// @Summary Webhook verification handshake
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "Subscription mode"
// @Param hub.verify_token query string true "Verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "challenge"
// @Router /webhook [get]
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// Receive godoc
// @Summary Receive message events
// @Tags Webhook
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		// the channel retries on non-2xx; a malformed body will never
		// improve, so acknowledge and move on
		h.logger.Warn("unparseable webhook payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	events := whatsapp.ParseEvents(payload)
	for _, event := range events {
		if err := h.enqueue(event); err != nil {
			h.logger.Error("webhook event dropped", zap.String("message_id", event.ChannelMessageID), zap.Error(err))
		}
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) enqueue(event models.InboundEvent) error {
	return h.queue.Enqueue(jobs.Job{
		ID:      event.ChannelMessageID,
		Type:    "inbound-message",
		Payload: event,
	})
}
