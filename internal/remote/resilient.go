package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/personal21/internal/domain"
)

// getResult carries an absent record through the resilience chain without
// it being counted as a failure
type getResult struct {
	snapshot *domain.ProgressSnapshot
	missing  bool
}

// Resilient wraps a remote store with resilience patterns from fortify
type Resilient struct {
	store      Store
	getBreaker circuitbreaker.CircuitBreaker[getResult]
	putBreaker circuitbreaker.CircuitBreaker[struct{}]
	getRetry   retry.Retry[getResult]
	putRetry   retry.Retry[struct{}]
	getLimit   bulkhead.Bulkhead[getResult]
	putLimit   bulkhead.Bulkhead[struct{}]
	rateLimit  ratelimit.RateLimiter
	logger     *slog.Logger
}

// ResilientConfig holds configuration for the resilient wrapper
type ResilientConfig struct {
	// EnableCircuitBreaker enables circuit breaker pattern
	EnableCircuitBreaker bool

	// EnableRetry enables retry with backoff
	EnableRetry bool

	// EnableRateLimit enables rate limiting
	EnableRateLimit bool

	// EnableBulkhead bounds concurrent calls to the remote
	EnableBulkhead bool

	// MaxAttempts per call when retry is enabled (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 500ms)
	InitialDelay time.Duration

	// RatePerSecond for rate limiting (default: 5)
	RatePerSecond int

	// MaxConcurrent calls per operation for the bulkhead (default: 4)
	MaxConcurrent int

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilientConfig returns defaults for remote sync
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableRateLimit:      true,
		EnableBulkhead:       true,
		MaxAttempts:          3,
		InitialDelay:         500 * time.Millisecond,
		RatePerSecond:        5,
		MaxConcurrent:        4,
	}
}

// NewResilient wraps store with resilience patterns using fortify
func NewResilient(store Store, cfg ResilientConfig) *Resilient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resilient{store: store, logger: logger}

	if cfg.EnableCircuitBreaker {
		r.getBreaker = newBreaker[getResult]("get", logger)
		r.putBreaker = newBreaker[struct{}]("put", logger)
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.InitialDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		r.getRetry = newRetry[getResult](attempts, delay)
		r.putRetry = newRetry[struct{}](attempts, delay)
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 5
		}
		r.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		r.getLimit = newBulkhead[getResult](maxConcurrent)
		r.putLimit = newBulkhead[struct{}](maxConcurrent)
	}

	return r
}

func newBulkhead[T any](maxConcurrent int) bulkhead.Bulkhead[T] {
	return bulkhead.New[T](bulkhead.Config{
		MaxConcurrent: maxConcurrent,
		MaxQueue:      maxConcurrent * 2,
		QueueTimeout:  30 * time.Second,
	})
}

func newBreaker[T any](op string, logger *slog.Logger) circuitbreaker.CircuitBreaker[T] {
	return circuitbreaker.New[T](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("remote circuit breaker state change",
				"op", op,
				"from", from.String(),
				"to", to.String())
		},
	})
}

func newRetry[T any](attempts int, delay time.Duration) retry.Retry[T] {
	return retry.New[T](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})
}

// GetProgress fetches the remote document
func (r *Resilient) GetProgress(ctx context.Context, userID string) (*domain.ProgressSnapshot, error) {
	if r.rateLimit != nil && !r.rateLimit.Allow(ctx, userID) {
		return nil, ErrRateLimited
	}

	operation := func(ctx context.Context) (getResult, error) {
		snap, err := r.store.GetProgress(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return getResult{missing: true}, nil
		}
		return getResult{snapshot: snap}, err
	}

	res, err := execute(ctx, r.getBreaker, r.getRetry, r.getLimit, operation)
	if err != nil {
		return nil, err
	}
	if res.missing {
		return nil, ErrNotFound
	}
	return res.snapshot, nil
}

// PutProgress stores the remote document
func (r *Resilient) PutProgress(ctx context.Context, userID string, snapshot *domain.ProgressSnapshot, syncedAt time.Time) error {
	if r.rateLimit != nil && !r.rateLimit.Allow(ctx, userID) {
		return ErrRateLimited
	}

	operation := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.store.PutProgress(ctx, userID, snapshot, syncedAt)
	}

	_, err := execute(ctx, r.putBreaker, r.putRetry, r.putLimit, operation)
	return err
}

func execute[T any](ctx context.Context, cb circuitbreaker.CircuitBreaker[T], rt retry.Retry[T], bh bulkhead.Bulkhead[T], call func(context.Context) (T, error)) (T, error) {
	operation := call
	if bh != nil {
		operation = func(ctx context.Context) (T, error) {
			return bh.Execute(ctx, call)
		}
	}

	// Apply circuit breaker + retry
	if cb != nil && rt != nil {
		return cb.Execute(ctx, func(ctx context.Context) (T, error) {
			return rt.Do(ctx, operation)
		})
	}
	if cb != nil {
		return cb.Execute(ctx, operation)
	}
	if rt != nil {
		return rt.Do(ctx, operation)
	}
	return operation(ctx)
}

// Close releases resources held by the wrapper
func (r *Resilient) Close() error {
	if r.rateLimit != nil {
		return r.rateLimit.Close()
	}
	return nil
}

// isRetryable retries transport failures and server-side statuses. Client
// errors and canceled contexts are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return true
}
