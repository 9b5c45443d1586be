package ratelimit

import (
	"strings"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig is the budget of a group of endpoints.
type EndpointConfig struct {
	Group  string        // requests in the same group share a bucket
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // empty matches any method
	Limit  int           // requests per window; 0 is unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// DefaultConfig returns limits suitable for a single public instance.
func DefaultConfig() *Config {
	return NewConfig(true, 1000, time.Minute, 30, time.Minute, nil)
}

// NewConfig builds a configuration with a default budget and a stricter
// budget shared by the AI search endpoints.
func NewConfig(enabled bool, defaultLimit int, defaultWindow time.Duration, aiLimit int, aiWindow time.Duration, whitelist []string) *Config {
	return &Config{
		Enabled:         enabled,
		DefaultLimit:    defaultLimit,
		DefaultWindow:   defaultWindow,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(whitelist),
		EndpointConfigs: AIEndpointConfigs(aiLimit, aiWindow),
	}
}

// AIEndpointConfigs limits the endpoints that call a language model or an
// external search engine.
func AIEndpointConfigs(limit int, window time.Duration) []EndpointConfig {
	burst := max(limit/10, 1)
	return []EndpointConfig{
		{Group: "ai", Path: "/api/companies/basic-ai-search", Method: "GET", Limit: limit, Window: window, Burst: burst},
		{Group: "ai", Path: "/api/companies/advanced-ai-search", Method: "GET", Limit: limit, Window: window, Burst: burst},
	}
}

func parseIPList(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		for _, part := range strings.Split(ip, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result[part] = true
			}
		}
	}
	return result
}
