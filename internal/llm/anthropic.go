package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicMessager is the slice of the Anthropic SDK used by AnthropicClient
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient implements Client for Anthropic's Messages API
type AnthropicClient struct {
	messages AnthropicMessager
	config   *Config
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(config *Config, apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{messages: &c.Messages, config: config}, nil
}

// Complete sends the conversation and concatenates the text blocks of the reply
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	modelName, err := c.config.modelFor(req)
	if err != nil {
		return "", err
	}
	system, chat := splitSystem(req.Messages)
	if len(chat) == 0 {
		return "", fmt.Errorf("request has no user message")
	}
	if req.JSON {
		system = append(system, "Respond with a single JSON object and nothing else.")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelName),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(c.config.temperature(req)),
		Messages:    make([]anthropic.MessageParam, 0, len(chat)),
	}
	for _, s := range system {
		params.System = append(params.System, anthropic.TextBlockParam{Text: s})
	}
	for _, m := range chat {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if req.JSON {
		return CleanJSONBlock(text), nil
	}
	return text, nil
}

// GetModel returns the model name for a tier
func (c *AnthropicClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op
func (c *AnthropicClient) Close() error {
	return nil
}
