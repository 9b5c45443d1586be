package llm

import (
	"context"
	"fmt"
)

// Role tags a message in a completion request
type Role string

// Message roles
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat message
type Message struct {
	Role    Role
	Content string
}

// System returns a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Request is a single completion request
type Request struct {
	Messages []Message
	Tier     ModelTier
	// Temperature overrides the configured temperature when set
	Temperature *float64
	// JSON asks the provider for a JSON object response. Providers without a
	// native JSON mode treat it as a hint; callers must still validate.
	JSON bool
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete returns the text of a single completion
	Complete(ctx context.Context, req Request) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderAnthropic:
		return NewAnthropicClient(config, apiKey)
	case ProviderOpenAI, "":
		return NewOpenAIClient(config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// temperature resolves the effective temperature of a request
func (c *Config) temperature(req Request) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return c.Temperature
}

// modelFor resolves the model of a request
func (c *Config) modelFor(req Request) (string, error) {
	tier := req.Tier
	if tier == "" {
		tier = TierLite
	}
	model := c.GetModel(tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	return model, nil
}

// splitSystem separates system messages from the conversation
func splitSystem(messages []Message) (system []string, chat []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		chat = append(chat, m)
	}
	return system, chat
}
