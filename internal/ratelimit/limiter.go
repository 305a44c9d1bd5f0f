// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tools, which can each trigger a full simulation run.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limit is a token bucket configuration.
type Limit struct {
	Rate  float64 // tokens per second
	Burst int     // bucket size and initial token count
}

// PerMinute returns a Limit refilling n tokens per minute.
func PerMinute(n float64, burst int) Limit {
	return Limit{Rate: n / 60, Burst: burst}
}

// Limiter is a per-key token bucket limiter. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   Limit
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter where every key gets its own bucket.
func NewLimiter(limit Limit) *Limiter {
	return &Limiter{
		limit:   limit,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket and reports whether one was
// available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit.Burst), last: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.limit.Rate*elapsed, float64(l.limit.Burst))
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// DefaultToolLimits are the per-tool limits of the MCP server. Runs are
// cheap for the built-in scenarios but user YAML can ask for long ones.
var DefaultToolLimits = map[string]Limit{
	"spikenet_run":    PerMinute(30, 5),
	"spikenet_graph":  PerMinute(60, 10),
	"spikenet_runs":   PerMinute(60, 10),
	"spikenet_export": PerMinute(10, 2),
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates limiters for DefaultToolLimits.
func NewToolLimiters() ToolLimiters {
	out := make(ToolLimiters, len(DefaultToolLimits))
	for tool, limit := range DefaultToolLimits {
		out[tool] = NewLimiter(limit)
	}
	return out
}

// Check returns an error if tool is over its limit. Tools without a
// limiter are always allowed.
func (tl ToolLimiters) Check(tool string) error {
	l, ok := tl[tool]
	if !ok {
		return nil
	}
	if !l.Allow(tool) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", tool)
	}
	return nil
}
