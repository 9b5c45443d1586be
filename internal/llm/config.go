// Package llm provides the completion-service abstraction and its Gemini,
// OpenAI and Anthropic providers.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, extraction, short summaries
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: structured output
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float64
	// BaseURL points the OpenAI provider at a compatible endpoint.
	BaseURL string
}

// DefaultConfig returns the default configuration (OpenAI, gpt-4o-mini)
func DefaultConfig() *Config {
	return DefaultOpenAIConfig()
}

// ConfigFor returns the default configuration of a provider
func ConfigFor(p Provider) *Config {
	switch p {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderAnthropic:
		return DefaultAnthropicConfig()
	default:
		return DefaultOpenAIConfig()
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o-mini",
			TierAdvanced: "gpt-4o",
		},
		Temperature: 0.5,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.5,
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-sonnet-4-5",
			TierAdvanced: "claude-opus-4-1",
		},
		Temperature: 0.5,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

// WithAllModels returns a new Config that uses one model for every tier
func (c *Config) WithAllModels(model string) *Config {
	out := c
	for _, tier := range []ModelTier{TierLite, TierStandard, TierAdvanced} {
		out = out.WithModel(tier, model)
	}
	return out
}
