package ratelimit

import (
	"strings"
)

// unlimited marks endpoints that are never throttled.
var unlimited = &EndpointConfig{Group: "unlimited"}

// MatchEndpoint returns the configuration for a request, or nil when the
// default budget applies. Exact paths win over prefixes.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" {
		return unlimited
	}
	for i := range configs {
		c := &configs[i]
		if c.Path == path && methodMatches(c.Method, method) {
			return c
		}
	}
	for i := range configs {
		c := &configs[i]
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) && methodMatches(c.Method, method) {
			return c
		}
	}
	return nil
}

func methodMatches(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
