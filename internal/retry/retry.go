// Package retry provides retry logic with exponential backoff and jitter for
// transient failures when calling external APIs.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrMaxAttemptsExceeded is returned when all attempts have been exhausted.
var ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts including the first
	// (default: 3).
	MaxAttempts int
	// InitialDelay is the delay before the first retry (default: 1s).
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries (default: 16s).
	MaxDelay time.Duration
	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64
	// JitterFactor randomizes delays within ±factor (default: 0.2).
	JitterFactor float64
	// Logger for retry events.
	Logger *slog.Logger
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
		Logger:       slog.Default(),
	}
}

// Retryer executes operations with exponential backoff.
type Retryer struct {
	config Config
}

// New creates a Retryer, filling unset config fields with defaults.
func New(config Config) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 16 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.JitterFactor <= 0 || config.JitterFactor > 1 {
		config.JitterFactor = 0.2
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Retryer{config: config}
}

// MaxAttempts returns the configured attempt budget.
func (r *Retryer) MaxAttempts() int {
	return r.config.MaxAttempts
}

// CalculateDelay returns the backoff delay for a given retry (1-based),
// jittered within ±JitterFactor of the exponential value.
func (r *Retryer) CalculateDelay(retryNum int) time.Duration {
	if retryNum <= 0 {
		return 0
	}

	delay := float64(r.config.InitialDelay)
	for i := 1; i < retryNum; i++ {
		delay *= r.config.Multiplier
	}
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	jitterRange := delay * r.config.JitterFactor
	delay += rand.Float64()*2*jitterRange - jitterRange

	if delay < float64(time.Millisecond) {
		delay = float64(time.Millisecond)
	}
	return time.Duration(delay)
}

// Do executes op until it succeeds, the attempt budget runs out, or
// retryable reports an error as permanent. A nil retryable retries every
// error.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) error {
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, retryable)
	return err
}

// DoWithResult executes op with retry logic and returns its result.
func DoWithResult[T any](ctx context.Context, r *Retryer, op func(ctx context.Context) (T, error), retryable func(error) bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.config.Logger.Info("operation succeeded after retry",
					slog.Int("attempts", attempt),
				)
			}
			return res, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			r.config.Logger.Debug("non-retryable error",
				slog.String("error", err.Error()),
			)
			return zero, err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.CalculateDelay(attempt)
		r.config.Logger.Warn("retrying operation",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.config.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	r.config.Logger.Error("max attempts exceeded",
		slog.Int("max_attempts", r.config.MaxAttempts),
		slog.String("last_error", lastErr.Error()),
	)
	return zero, errors.Join(ErrMaxAttemptsExceeded, lastErr)
}
