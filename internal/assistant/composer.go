package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/suntvalg/suntvalg-server/internal/metrics"
	"github.com/suntvalg/suntvalg-server/internal/models"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 1000
)

// CompletionClient is the part of the OpenAI client the composer uses.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client for apiKey. An empty baseURL keeps the
// public endpoint.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// Composer turns a conversation into one model reply.
type Composer struct {
	client    CompletionClient
	prompts   *PromptTable
	model     string
	maxTokens int
	logger    zerolog.Logger
}

// ComposerOption customizes Composer.
type ComposerOption func(*Composer)

func WithModel(model string) ComposerOption {
	return func(c *Composer) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxTokens(n int) ComposerOption {
	return func(c *Composer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithComposerLogger(logger zerolog.Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = logger
	}
}

func NewComposer(client CompletionClient, prompts *PromptTable, opts ...ComposerOption) *Composer {
	c := &Composer{
		client:    client,
		prompts:   prompts,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BuildMessages assembles the system prompt for lang followed by history in
// the given (chronological) order, inbound as user and outbound as assistant.
func BuildMessages(prompts *PromptTable, lang string, history []models.Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompts.For(lang),
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Direction.Role(),
			Content: m.Content,
		})
	}
	return msgs
}

// Compose asks the model for a reply to history. A response without choices
// yields an empty reply, not an error.
func (c *Composer) Compose(ctx context.Context, lang string, history []models.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  BuildMessages(c.prompts, lang, history),
		MaxTokens: c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.LLMRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Str("model", c.model).Msg("chat completion returned no choices")
		return "", nil
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}
