// Package ratelimit provides token-bucket rate limiting middleware for the
// job API, protecting the Google API quotas behind it.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config holds rate limiter configuration.
type Config struct {
	// RequestsPerSecond is the refill rate of the global bucket.
	RequestsPerSecond float64
	// BurstSize is the bucket capacity.
	BurstSize int
	// Logger for rate limit events.
	Logger *slog.Logger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10.0,
		BurstSize:         20,
		Logger:            slog.Default(),
	}
}

// TokenBucket implements a token bucket.
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket with the given rate and capacity.
func NewTokenBucket(refillRate float64, burstSize int) *TokenBucket {
	return &TokenBucket{
		tokens:     float64(burstSize),
		maxTokens:  float64(burstSize),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token when available. It returns whether the request may
// proceed, the remaining tokens, and how long to wait otherwise.
func (tb *TokenBucket) Allow() (allowed bool, remaining int, retryAfter time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = math.Min(tb.maxTokens, tb.tokens+tb.refillRate*now.Sub(tb.lastRefill).Seconds())
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, int(tb.tokens), 0
	}

	needed := 1 - tb.tokens
	retryAfter = time.Duration(needed/tb.refillRate*float64(time.Second)) + time.Millisecond
	return false, 0, retryAfter
}

// Limit returns the bucket capacity.
func (tb *TokenBucket) Limit() int {
	return int(tb.maxTokens)
}

// Limiter applies rate limiting per endpoint with a global fallback bucket.
type Limiter struct {
	config    Config
	global    *TokenBucket
	endpoints map[string]*TokenBucket
	mu        sync.RWMutex
}

// New creates a rate limiter.
func New(config Config) *Limiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10.0
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 20
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Limiter{
		config:    config,
		global:    NewTokenBucket(config.RequestsPerSecond, config.BurstSize),
		endpoints: make(map[string]*TokenBucket),
	}
}

// SetEndpointLimit configures a dedicated bucket for one path.
func (l *Limiter) SetEndpointLimit(endpoint string, requestsPerSecond float64, burstSize int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.endpoints[endpoint] = NewTokenBucket(requestsPerSecond, burstSize)
}

func (l *Limiter) bucket(endpoint string) *TokenBucket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.endpoints[endpoint]; ok {
		return b
	}
	return l.global
}

// Middleware returns an HTTP middleware that applies rate limiting.
func (l *Limiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket := l.bucket(r.URL.Path)
		allowed, remaining, retryAfter := bucket.Allow()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bucket.Limit()))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !allowed {
			l.config.Logger.Warn("rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Duration("retry_after", retryAfter),
			)

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":       "rate limit exceeded",
				"retry_after": int(math.Ceil(retryAfter.Seconds())),
			})
			return
		}

		next(w, r)
	}
}
