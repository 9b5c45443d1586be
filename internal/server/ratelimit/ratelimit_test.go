package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(cfg *Config) (*Limiter, *time.Time) {
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_DefaultBudget(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(true, 3, time.Minute, 1, time.Minute, nil))

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("1.2.3.4", "/api/companies", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("1.2.3.4", "/api/companies", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 20*time.Second, info.RetryAfter, float64(time.Millisecond))
}

func TestLimiter_Refill(t *testing.T) {
	l, now := newTestLimiter(NewConfig(true, 2, time.Minute, 1, time.Minute, nil))

	l.Allow("c", "/api/companies", "GET")
	l.Allow("c", "/api/companies", "GET")
	allowed, _ := l.Allow("c", "/api/companies", "GET")
	require.False(t, allowed)

	*now = now.Add(30 * time.Second)
	allowed, _ = l.Allow("c", "/api/companies", "GET")
	assert.True(t, allowed)
}

func TestLimiter_DeniedRequestsDoNotConsume(t *testing.T) {
	l, now := newTestLimiter(NewConfig(true, 1, time.Minute, 1, time.Minute, nil))

	allowed, _ := l.Allow("c", "/api/companies", "GET")
	require.True(t, allowed)
	for i := 0; i < 5; i++ {
		allowed, _ = l.Allow("c", "/api/companies", "GET")
		require.False(t, allowed)
	}

	*now = now.Add(time.Minute)
	allowed, _ = l.Allow("c", "/api/companies", "GET")
	assert.True(t, allowed)
}

func TestLimiter_AIEndpointsShareStricterBucket(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(true, 100, time.Minute, 10, time.Minute, nil))

	allowed, info := l.Allow("c", "/api/companies/basic-ai-search", "GET")
	require.True(t, allowed)
	assert.Equal(t, 10, info.Limit)

	// Burst is a tenth of the limit, shared across both AI endpoints.
	allowed, _ = l.Allow("c", "/api/companies/advanced-ai-search", "GET")
	assert.False(t, allowed)

	allowed, _ = l.Allow("c", "/api/companies", "GET")
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(true, 1, time.Minute, 1, time.Minute, nil))

	allowed, _ := l.Allow("a", "/api/companies", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("b", "/api/companies", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/api/companies", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ExemptRequests(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(true, 1, time.Minute, 1, time.Minute, []string{"10.0.0.1, 10.0.0.2"}))

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.2", "/api/companies", "GET")
		assert.True(t, allowed)
		allowed, _ = l.Allow("9.9.9.9", "/health", "GET")
		assert.True(t, allowed)
	}

	disabled, _ := newTestLimiter(NewConfig(false, 1, time.Minute, 1, time.Minute, nil))
	for i := 0; i < 5; i++ {
		allowed, _ := disabled.Allow("c", "/api/companies", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, now := newTestLimiter(NewConfig(true, 5, time.Minute, 1, time.Minute, nil))
	l.Allow("old", "/api/companies", "GET")
	*now = now.Add(2 * time.Hour)
	l.Allow("new", "/api/companies", "GET")

	l.evictIdle(time.Hour)
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "new:default")
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(NewConfig(true, 50, time.Minute, 1, time.Minute, nil))

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/api/companies", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowedCount)
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Group: "exact", Path: "/api/companies/basic-ai-search", Method: "GET"},
		{Group: "prefix", Path: "/api/prospects/", Method: "POST"},
		{Group: "any", Path: "/api/admin/"},
	}
	tests := []struct {
		path, method, want string
	}{
		{"/health", "GET", "unlimited"},
		{"/api/companies/basic-ai-search", "GET", "exact"},
		{"/api/companies/basic-ai-search", "POST", ""},
		{"/api/prospects/c1", "POST", "prefix"},
		{"/api/prospects/c1", "GET", ""},
		{"/api/admin/x", "DELETE", "any"},
		{"/api/companies", "GET", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Group)
		})
	}
}
