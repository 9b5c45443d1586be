// Package config loads process configuration from defaults, an optional config file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable (PROSPECTOR_LLM_PROVIDER, ...).
const EnvPrefix = "PROSPECTOR"

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	ListenAddr  string          `mapstructure:"listen_addr" validate:"required"`
	StoreDriver string          `mapstructure:"store_driver" validate:"oneof=postgres memory"`
	DatabaseURL string          `mapstructure:"database_url" validate:"required_if=StoreDriver postgres"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Scrape      ScrapeConfig    `mapstructure:"scrape"`
	Worker      WorkerConfig    `mapstructure:"worker"`
	Discovery   DiscoveryConfig `mapstructure:"discovery"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Log         LogConfig       `mapstructure:"log"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider        string  `mapstructure:"provider" validate:"oneof=openai gemini anthropic"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base_url" validate:"omitempty,url"`
	Temperature     float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	OpenAIAPIKey    string  `mapstructure:"openai_api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key"`
	AnthropicAPIKey string  `mapstructure:"anthropic_api_key"`
}

// APIKey returns the key of the selected provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "gemini":
		return c.GeminiAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// ScrapeConfig bounds the headless page fetch.
type ScrapeConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	SnippetWords int           `mapstructure:"snippet_words" validate:"gt=0"`
	ChromePath   string        `mapstructure:"chrome_path"`
}

// WorkerConfig controls the job consumer and the queue's retry policy.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=0"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	Lease          time.Duration `mapstructure:"lease" validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=1"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial" validate:"gt=0"`
	BackoffFactor  float64       `mapstructure:"backoff_factor" validate:"gte=1"`
	BackoffMax     time.Duration `mapstructure:"backoff_max" validate:"gt=0"`
}

// DiscoveryConfig configures the external web search used by advanced search.
type DiscoveryConfig struct {
	SearchURL         string        `mapstructure:"search_url" validate:"required,url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=1"`
	MaxCandidates     int           `mapstructure:"max_candidates" validate:"gte=1"`
}

// RateLimitConfig configures inbound per-client throttling.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit" validate:"gte=0"`
	DefaultWindow time.Duration `mapstructure:"default_window" validate:"gt=0"`
	AILimit       int           `mapstructure:"ai_limit" validate:"gte=0"`
	AIWindow      time.Duration `mapstructure:"ai_window" validate:"gt=0"`
	Whitelist     []string      `mapstructure:"whitelist"`
}

// AuthConfig enables bearer-token identity when a secret is set.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	DefaultUser string `mapstructure:"default_user" validate:"required"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers every key with its default value. Viper only reads
// environment variables for keys it knows about, so every key must appear here.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":4000")
	v.SetDefault("store_driver", StorePostgres)
	v.SetDefault("database_url", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.anthropic_api_key", "")

	v.SetDefault("scrape.timeout", 60*time.Second)
	v.SetDefault("scrape.snippet_words", 500)
	v.SetDefault("scrape.chrome_path", "")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.poll_interval", 500*time.Millisecond)
	v.SetDefault("worker.lease", 5*time.Minute)
	v.SetDefault("worker.max_attempts", 4)
	v.SetDefault("worker.backoff_initial", time.Minute)
	v.SetDefault("worker.backoff_factor", 5.0)
	v.SetDefault("worker.backoff_max", 2*time.Hour)

	v.SetDefault("discovery.search_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("discovery.user_agent", "Mozilla/5.0 (compatible; Prospector/1.0)")
	v.SetDefault("discovery.timeout", 10*time.Second)
	v.SetDefault("discovery.requests_per_second", 1.0)
	v.SetDefault("discovery.burst", 2)
	v.SetDefault("discovery.max_candidates", 20)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.ai_limit", 30)
	v.SetDefault("rate_limit.ai_window", time.Minute)
	v.SetDefault("rate_limit.whitelist", []string{})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.default_user", "demo-user")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// NewViper returns a viper instance with defaults, environment binding and,
// when configFile is non-empty, the given config file merged in.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional unprefixed names, as found in most .env files.
	bindings := map[string][]string{
		"database_url":          {EnvPrefix + "_DATABASE_URL", "DATABASE_URL"},
		"llm.openai_api_key":    {EnvPrefix + "_LLM_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.gemini_api_key":    {EnvPrefix + "_LLM_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"llm.anthropic_api_key": {EnvPrefix + "_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"scrape.timeout":        {EnvPrefix + "_SCRAPE_TIMEOUT", "SCRAPE_TIMEOUT"},
		"auth.jwt_secret":       {EnvPrefix + "_AUTH_JWT_SECRET", "JWT_SECRET"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// RequireLLM reports a missing API key for the selected provider. Only
// processes that call the model (serve, worker) need one.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey() == "" && c.LLM.BaseURL == "" {
		return fmt.Errorf("config error: no API key configured for LLM provider %q", c.LLM.Provider)
	}
	return nil
}
