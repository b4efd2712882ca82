package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/config"
)

// Sender is the outbound message boundary the services depend on.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendDocument(ctx context.Context, to, link, filename, caption string) error
}

// MediaFetcher resolves and downloads channel-hosted media (attached files).
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, error)
}

// Client talks to the WhatsApp Cloud API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	phoneNumberID string
	accessToken   string
	logger        *zap.Logger
}

// NewClient constructs a Cloud API client from config.
func NewClient(cfg config.WhatsAppConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       cfg.APIBaseURL,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		logger:        logger,
	}
}

// SendText delivers a plain text message to the given handle.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	req := textMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             outboundText{Body: body},
	}
	return c.postMessage(ctx, req)
}

// SendDocument delivers a document message referencing a download link.
func (c *Client) SendDocument(ctx context.Context, to, link, filename, caption string) error {
	req := documentMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         outboundDocument{Link: link, Filename: filename, Caption: caption},
	}
	return c.postMessage(ctx, req)
}

// FetchMedia resolves a media id to its download URL and returns the bytes.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, error) {
	lookupURL := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	var lookup mediaLookupResponse
	if err := c.getJSON(ctx, lookupURL, &lookup); err != nil {
		return nil, fmt.Errorf("resolve media %s: %w", mediaID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookup.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build media download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media %s: %w", mediaID, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download media %s: status %d", mediaID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) postMessage(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("whatsapp send rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", raw))
		return fmt.Errorf("send message: status %d", resp.StatusCode)
	}

	var ack sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// delivery succeeded; the ack body is informational only
		return nil
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
