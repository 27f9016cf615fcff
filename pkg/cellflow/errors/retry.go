package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds how hard a failing operation is retried.
type RetryConfig struct {
	MaxAttempts    int           // including the first; values below 1 mean 1
	InitialBackoff time.Duration // delay before the second attempt
	MaxBackoff     time.Duration // zero means no cap
	BackoffFactor  float64       // growth per attempt; values below 1 keep the delay flat
	Jitter         float64       // +/- fraction of each delay, 0..1

	// RetryableFunc overrides IsRetryable.
	RetryableFunc func(error) bool
}

// StoreRetry is tuned for local storage contention: a handful of quick
// attempts so a busy journal never holds a bus handler for long.
var StoreRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 5 * time.Millisecond,
	MaxBackoff:     100 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.2,
}

// RetryResult reports the outcome of WithRetry or WithRetryContext.
type RetryResult[T any] struct {
	Value    T
	Err      error // *CategorizedError when set
	Attempts int
	Duration time.Duration
}

// WithRetry is WithRetryContext without cancellation.
func WithRetry[T any](cfg RetryConfig, fn func() (T, error)) RetryResult[T] {
	return WithRetryContext(context.Background(), cfg, func(context.Context) (T, error) {
		return fn()
	})
}

// WithRetryContext calls fn until it succeeds, fails with a non-retryable
// error, runs out of attempts or ctx ends. Cancellation is checked before
// every attempt and interrupts the backoff wait.
func WithRetryContext[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := max(cfg.MaxAttempts, 1)

	fail := func(err error, cat Category, n int, what string) RetryResult[T] {
		return RetryResult[T]{
			Err:      &CategorizedError{Err: err, Category: cat, Retries: n, Context: what},
			Attempts: n,
			Duration: time.Since(start),
		}
	}

	delay := cfg.InitialBackoff
	var lastErr error
	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return fail(err, CategoryPermanent, n-1, "context cancelled")
		}

		v, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: v, Attempts: n, Duration: time.Since(start)}
		}
		lastErr = err
		if !retryable(err) {
			return fail(err, Categorize(err), n, "")
		}
		if n == attempts {
			break
		}

		timer := time.NewTimer(calculateBackoff(delay, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fail(ctx.Err(), CategoryPermanent, n, "context cancelled during backoff")
		case <-timer.C:
		}
		delay = nextBackoff(delay, cfg)
	}

	return fail(lastErr, Categorize(lastErr), attempts, "max retries exceeded")
}

func nextBackoff(d time.Duration, cfg RetryConfig) time.Duration {
	if cfg.BackoffFactor > 1 {
		d = time.Duration(float64(d) * cfg.BackoffFactor)
	}
	if cfg.MaxBackoff > 0 && d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	return d
}

// calculateBackoff spreads base by up to +/- jitter of itself.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	return base + time.Duration(float64(base)*jitter*(rand.Float64()*2-1))
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the attempt budget.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the first delay.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithRetryableFunc sets a custom retryability check.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) { cfg.RetryableFunc = fn }
}

// NewRetryConfig derives a configuration from base.
func NewRetryConfig(base RetryConfig, opts ...RetryOption) RetryConfig {
	cfg := base
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
