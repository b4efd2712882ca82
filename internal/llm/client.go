package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
	"github.com/LeelaMadhavaRao/Attendace-system-sub000/pkg/config"
)

// Provider is one backing credential/model pair the classifier can try.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system string, history []models.HistoryTurn, user string) (string, error)
}

// OpenAIProvider calls the OpenAI chat completion API with one key and model.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider constructs a provider for the given credential pair.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

// Name identifies the provider in logs without exposing the key.
func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("openai/%s", p.model)
}

// Complete sends the prompt stack and returns the raw assistant text.
func (p *OpenAIProvider) Complete(ctx context.Context, system string, history []models.HistoryTurn, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, turn := range history {
		role := turn.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion from %s", p.Name())
	}
	return resp.Choices[0].Message.Content, nil
}

// ProvidersFromConfig zips configured keys and models into an ordered chain.
// A missing model entry reuses the first configured model.
func ProvidersFromConfig(cfg config.ClassifierConfig) []Provider {
	providers := make([]Provider, 0, len(cfg.APIKeys))
	for i, key := range cfg.APIKeys {
		model := "gpt-4o-mini"
		if len(cfg.Models) > 0 {
			model = cfg.Models[0]
			if i < len(cfg.Models) {
				model = cfg.Models[i]
			}
		}
		providers = append(providers, NewOpenAIProvider(key, model))
	}
	return providers
}
