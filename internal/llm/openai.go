package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIClient implements Client over langchaingo's OpenAI chat model
type OpenAIClient struct {
	model  llms.Model
	config *Config
}

// NewOpenAIClient creates a new OpenAI client. A BaseURL in config targets any
// OpenAI-compatible endpoint, which may not need a key.
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if apiKey == "" {
		apiKey = "none"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(config.GetModel(TierLite)),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAIClient{model: model, config: config}, nil
}

// Complete sends the role-tagged conversation and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	modelName, err := c.config.modelFor(req)
	if err != nil {
		return "", err
	}

	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		content = append(content, llms.MessageContent{
			Role:  langchainRole(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	opts := []llms.CallOption{
		llms.WithModel(modelName),
		llms.WithTemperature(c.config.temperature(req)),
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client holds no resources.
func (c *OpenAIClient) Close() error {
	return nil
}

func langchainRole(r Role) schema.ChatMessageType {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
