package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/rxkit/errors"
	"github.com/kbukum/rxkit/logger"
	"github.com/kbukum/rxkit/observability"
)

// ErrMaxRetriesExceeded matches, via errors.Is, every error returned when a
// retry loop runs out of attempts.
var ErrMaxRetriesExceeded = errors.New(errors.ErrCodeRetryExhausted, "max retries exceeded")

// DefaultBaseDelay is the linear backoff unit used by ExecuteWithRetry.
const DefaultBaseDelay = 100 * time.Millisecond

const tracerName = "github.com/kbukum/rxkit/resilience"

// BackoffFunc returns how long to wait after the given failed attempt
// (1-based) before the next one.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits attempt × base.
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// ExponentialBackoff waits initial × factor^(attempt-1), randomised by
// ±jitter (0.0 to 1.0) and capped at maxDelay.
func ExponentialBackoff(initial, maxDelay time.Duration, factor, jitter float64) BackoffFunc {
	if factor <= 0 {
		factor = 2.0
	}
	return func(attempt int) time.Duration {
		d := float64(initial) * math.Pow(factor, float64(attempt-1))
		if jitter > 0 {
			d += (rand.Float64()*2 - 1) * d * jitter
		}
		if maxDelay > 0 && d > float64(maxDelay) {
			d = float64(maxDelay)
		}
		if d < 0 {
			d = float64(initial)
		}
		return time.Duration(d)
	}
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Name identifies the operation in logs, spans and metrics.
	Name string
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// Backoff computes the wait after each failed attempt.
	// Defaults to LinearBackoff(DefaultBaseDelay).
	Backoff BackoffFunc
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, backoff time.Duration)

	Metrics *observability.StreamMetrics
	Logger  *logger.Logger
	Tracer  trace.Tracer
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Name:        "retry",
		MaxAttempts: 3,
		Backoff:     LinearBackoff(DefaultBaseDelay),
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = "retry"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff == nil {
		cfg.Backoff = LinearBackoff(DefaultBaseDelay)
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get("resilience")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.Tracer(tracerName)
	}
}

// Retry calls fn until it succeeds, returns an error RetryIf rejects, or
// MaxAttempts attempts have failed. In the last case the returned error
// matches ErrMaxRetriesExceeded and unwraps to fn's last error.
//
// Retry blocks between attempts. If ctx is done while waiting it returns
// ctx.Err() without another attempt.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	cfg.applyDefaults()

	ctx, span := cfg.Tracer.Start(ctx, observability.SpanRetryExecute,
		trace.WithAttributes(
			attribute.String(observability.AttrOperationName, cfg.Name),
			attribute.Int(observability.AttrMaxAttempts, cfg.MaxAttempts),
		),
	)
	defer span.End()
	log := cfg.Logger.WithContext(ctx).WithFields(logger.Fields(logger.FieldOperation, cfg.Name))

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			observability.SetSpanError(span, err)
			return zero, err
		}

		result, err := fn()
		if err == nil {
			cfg.Metrics.RecordRetryAttempt(ctx, cfg.Name, "success")
			span.SetAttributes(attribute.Int(observability.AttrAttempt, attempt))
			return result, nil
		}
		cfg.Metrics.RecordRetryAttempt(ctx, cfg.Name, "failure")
		span.AddEvent(observability.SpanRetryAttempt, trace.WithAttributes(
			attribute.Int(observability.AttrAttempt, attempt),
			attribute.String("error", err.Error()),
		))
		lastErr = err

		if !cfg.RetryIf(err) {
			observability.SetSpanError(span, err)
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}
		log.Debug("attempt failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))

		if err := sleep(ctx, backoff); err != nil {
			observability.SetSpanError(span, err)
			return zero, err
		}
	}

	exhausted := errors.RetryExhausted(cfg.MaxAttempts, lastErr)
	cfg.Metrics.RecordRetryExhausted(ctx, cfg.Name)
	observability.SetSpanError(span, exhausted)
	log.Warn("retries exhausted", logger.Fields(
		logger.FieldAttempt, cfg.MaxAttempts,
		logger.FieldError, lastErr.Error(),
	))
	return zero, exhausted
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteWithRetry calls op up to maxAttempts times, waiting N × 100ms
// after the Nth failure. Every error is retried.
func ExecuteWithRetry[T any](ctx context.Context, maxAttempts int, op func() (T, error)) (T, error) {
	if maxAttempts <= 0 {
		var zero T
		return zero, errors.InvalidInput("maxAttempts", "must be a positive integer").
			WithDetail("maxAttempts", maxAttempts)
	}
	return Retry(ctx, RetryConfig{
		Name:        "execute_with_retry",
		MaxAttempts: maxAttempts,
		Backoff:     LinearBackoff(DefaultBaseDelay),
		RetryIf:     func(error) bool { return true },
	}, op)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
