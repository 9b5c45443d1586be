// Package ratelimit throttles inbound requests per client with token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

type entry struct {
	limiter    *rate.Limiter
	limit      int
	lastAccess time.Time
}

// Limiter manages one token bucket per client and endpoint.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	config  *Config
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter. A nil config uses DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Limiter{
		buckets: make(map[string]*entry),
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow reports whether a request from clientID to path may proceed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}

	ep := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if ep == nil {
		ep = &EndpointConfig{
			Group:  "default",
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	if ep.Limit <= 0 || ep.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	e := l.bucket(clientID+":"+ep.Group, ep, now)
	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, Info{Limit: ep.Limit, ResetTime: now}
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}

	tokens := e.limiter.TokensAt(now)
	info := Info{
		Allowed:   delay == 0,
		Limit:     ep.Limit,
		Remaining: max(int(math.Floor(tokens)), 0),
		ResetTime: now.Add(untilFull(tokens, e.limiter)),
	}
	if delay > 0 {
		info.RetryAfter = delay
	}
	return info.Allowed, info
}

func (l *Limiter) bucket(key string, ep *EndpointConfig, now time.Time) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.buckets[key]
	if !ok {
		burst := ep.Burst
		if burst <= 0 {
			burst = ep.Limit
		}
		every := rate.Every(ep.Window / time.Duration(ep.Limit))
		e = &entry{limiter: rate.NewLimiter(every, burst), limit: ep.Limit}
		l.buckets[key] = e
	}
	e.lastAccess = now
	return e
}

func untilFull(tokens float64, lim *rate.Limiter) time.Duration {
	missing := float64(lim.Burst()) - tokens
	if missing <= 0 || lim.Limit() <= 0 {
		return 0
	}
	return time.Duration(missing / float64(lim.Limit()) * float64(time.Second))
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Hour)
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used within idle.
func (l *Limiter) evictIdle(idle time.Duration) {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.buckets {
		if e.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
