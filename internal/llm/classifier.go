package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

// Decision is the classifier's typed verdict for one turn.
type Decision struct {
	Route   models.Route           `json:"route"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// ClassifyRequest carries one utterance plus optional context.
type ClassifyRequest struct {
	Message     string
	History     []models.HistoryTurn
	FileContext string
}

// Classifier resolves free-form text to a route decision, degrading through
// an ordered provider chain and never failing the turn.
type Classifier struct {
	providers []Provider
	timeout   time.Duration
	onAttempt func(provider, result string)
	logger    *zap.Logger
}

// NewClassifier constructs the classifier over the given provider chain.
func NewClassifier(providers []Provider, timeout time.Duration, logger *zap.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{providers: providers, timeout: timeout, onAttempt: func(string, string) {}, logger: logger}
}

// SetAttemptObserver registers a callback invoked once per provider attempt
// with the provider name and "ok" or "error". Call before serving traffic.
func (c *Classifier) SetAttemptObserver(fn func(provider, result string)) {
	if fn != nil {
		c.onAttempt = fn
	}
}

// Classify tries each provider in order and stops at the first success.
// After exhausting the chain it returns the deterministic fallback decision;
// the error return is always nil so callers never have to branch.
func (c *Classifier) Classify(ctx context.Context, req ClassifyRequest) *Decision {
	history := req.History
	if SuppressHistory(req.Message) {
		history = nil
	}

	user := req.Message
	if req.FileContext != "" {
		user = req.Message + "\n\nAttached spreadsheet content:\n" + req.FileContext
	}

	for _, provider := range c.providers {
		raw, err := c.tryProvider(ctx, provider, history, user)
		if err != nil {
			c.onAttempt(provider.Name(), "error")
			c.logger.Warn("classifier provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		c.onAttempt(provider.Name(), "ok")
		return ParseDecision(raw)
	}

	c.logger.Error("all classifier providers exhausted")
	return &Decision{Route: models.RouteGeneral, Message: fallbackMessage, Data: map[string]interface{}{}}
}

func (c *Classifier) tryProvider(ctx context.Context, provider Provider, history []models.HistoryTurn, user string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return provider.Complete(attemptCtx, systemPrompt, history, user)
}

// ParseDecision extracts the first well-formed JSON object from the raw model
// answer. On any parse problem the whole answer becomes a general-route
// message; a parse error never propagates.
func ParseDecision(raw string) *Decision {
	fallback := &Decision{Route: models.RouteGeneral, Message: strings.TrimSpace(raw), Data: map[string]interface{}{}}
	if fallback.Message == "" {
		fallback.Message = fallbackMessage
	}

	obj := firstJSONObject(raw)
	if obj == "" {
		return fallback
	}

	var decision Decision
	if err := json.Unmarshal([]byte(obj), &decision); err != nil {
		return fallback
	}
	if !decision.Route.Valid() {
		return fallback
	}
	if decision.Data == nil {
		decision.Data = map[string]interface{}{}
	}
	return &decision
}

// firstJSONObject returns the first balanced {...} substring, tracking string
// literals so braces inside values do not break the count.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
