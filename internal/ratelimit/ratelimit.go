// Package ratelimit limits how many scans a client may start per window.
// The Redis limiter shares counts across service replicas; the in-memory
// token bucket serves a single replica and stands in when Redis is
// unreachable.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/resilience"
)

// Limiter decides whether key may perform one more request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// TokenBucket is an in-memory token-bucket limiter. Each key holds up to
// limit tokens, refilled continuously at limit per window.
type TokenBucket struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewTokenBucket creates a TokenBucket and starts its cleanup loop. Call
// Close to stop it. A non-positive window means one minute.
func NewTokenBucket(limit int, window time.Duration) *TokenBucket {
	if window <= 0 {
		window = time.Minute
	}
	l := &TokenBucket{
		entries: make(map[string]*entry),
		limit:   max(limit, 1),
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow consumes one token for key if one is available.
func (l *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{
			tokens:    float64(l.limit - 1),
			lastCheck: now,
		}
		return true, nil
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now

	rate := float64(l.limit) / l.window.Seconds()
	e.tokens += elapsed.Seconds() * rate
	if e.tokens > float64(l.limit) {
		e.tokens = float64(l.limit)
	}

	if e.tokens < 1 {
		return false, nil
	}

	e.tokens--
	return true, nil
}

// Close stops the cleanup loop.
func (l *TokenBucket) Close() {
	l.once.Do(func() { close(l.stop) })
}

// cleanup periodically removes entries idle for two windows.
func (l *TokenBucket) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-l.stop:
			return
		}
		l.mu.Lock()
		cutoff := l.now().Add(-2 * l.window)
		for key, e := range l.entries {
			if e.lastCheck.Before(cutoff) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

// Counter is the Redis operation the fixed-window limiter needs.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisWindow is a fixed-window limiter whose counters live in Redis.
type RedisWindow struct {
	counter Counter
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRedisWindow creates a fixed-window limiter allowing limit requests per
// window for each key.
func NewRedisWindow(counter Counter, limit int, window time.Duration) *RedisWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisWindow{counter: counter, limit: max(limit, 1), window: window, now: time.Now}
}

func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	n, err := l.counter.IncrWindow(ctx, fmt.Sprintf("ratelimit:%s:%d", key, bucket), l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

// Fallback consults primary through a circuit breaker and answers from
// secondary while primary is failing.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	breaker   *resilience.CircuitBreaker
	logger    *slog.Logger
}

// NewFallback combines a shared limiter with a local one.
func NewFallback(primary, secondary Limiter, breaker *resilience.CircuitBreaker) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		logger:    slog.Default().With("component", "rate-limiter"),
	}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := f.breaker.Execute(func() error {
		var err error
		allowed, err = f.primary.Allow(ctx, key)
		return err
	})
	if err == nil {
		return allowed, nil
	}
	f.logger.Debug("shared limiter unavailable, using local limiter", "error", err)
	return f.secondary.Allow(ctx, key)
}
