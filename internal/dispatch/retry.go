package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/abbank/notification-gateway/internal/model"
)

// RetryOption configures the RetryExecutor.
type RetryOption func(*RetryExecutor)

// RetryExecutor runs one adapter call as a bounded sequence of attempts with
// exponential backoff and jitter.
//
// A FAILURE result is treated as retryable. A SKIPPED result (e.g. no email
// on record) is a permanent condition and is never retried; retrying a
// missing address cannot make one appear. A panic inside the operation is
// recovered and normalised into a FAILURE result, so Execute never
// propagates errors of any kind.
type RetryExecutor struct {
	maxAttempts  int
	initialDelay time.Duration
	factor       float64
	maxDelay     time.Duration
	logger       *slog.Logger
}

// NewRetryExecutor creates a retry executor with default settings
// (3 attempts, 500ms initial delay, factor 2.0, 10s cap).
func NewRetryExecutor(opts ...RetryOption) *RetryExecutor {
	e := &RetryExecutor{
		maxAttempts:  3,
		initialDelay: 500 * time.Millisecond,
		factor:       2.0,
		maxDelay:     10 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithMaxAttempts sets the maximum number of delivery attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(e *RetryExecutor) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the base delay for exponential backoff.
func WithInitialDelay(d time.Duration) RetryOption {
	return func(e *RetryExecutor) {
		if d >= 0 {
			e.initialDelay = d
		}
	}
}

// WithBackoffFactor sets the backoff multiplier. Values below 1.0 are ignored.
func WithBackoffFactor(f float64) RetryOption {
	return func(e *RetryExecutor) {
		if f >= 1.0 {
			e.factor = f
		}
	}
}

// WithMaxDelay caps the delay between attempts.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(e *RetryExecutor) {
		if d >= 0 {
			e.maxDelay = d
		}
	}
}

// WithRetryLogger sets the logger for the retry executor.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(e *RetryExecutor) {
		e.logger = l
	}
}

// Execute invokes op up to maxAttempts times, sleeping between FAILURE
// attempts. desc is a human-readable "provider/CHANNEL ..." label used in
// logs and in synthesised failure results. The return value is always a
// usable DeliveryResult: the first SUCCESS or SKIPPED, or the last FAILURE.
//
// Cancelling ctx during an inter-attempt sleep aborts further attempts and
// returns the last observed FAILURE.
func (e *RetryExecutor) Execute(ctx context.Context, op func() model.DeliveryResult, desc string) model.DeliveryResult {
	var last model.DeliveryResult

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		last = e.attempt(op, desc, attempt)

		if last.Status == model.StatusSuccess {
			if attempt > 1 {
				e.logger.Info("retry succeeded", "desc", desc, "attempt", attempt, "maxAttempts", e.maxAttempts)
			}
			return last
		}
		if last.Status == model.StatusSkipped {
			return last
		}

		e.logger.Warn("delivery failed",
			"desc", desc,
			"attempt", attempt,
			"maxAttempts", e.maxAttempts,
			"error", last.ErrorMessage,
		)

		if attempt < e.maxAttempts {
			select {
			case <-ctx.Done():
				e.logger.Warn("retry interrupted by shutdown", "desc", desc, "attempt", attempt)
				return last
			case <-time.After(e.backoffDelay(attempt)):
			}
		}
	}

	e.logger.Error("all retry attempts exhausted", "desc", desc, "attempts", e.maxAttempts)
	return last
}

// attempt runs op once, converting a panic into a FAILURE result.
func (e *RetryExecutor) attempt(op func() model.DeliveryResult, desc string, attempt int) (result model.DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("unexpected panic during delivery",
				"desc", desc,
				"attempt", attempt,
				"maxAttempts", e.maxAttempts,
				"panic", r,
			)
			provider, ch := parseDescription(desc)
			result = model.Failure(provider, ch, fmt.Sprintf("Exception: %v", r), 0)
		}
	}()
	return op()
}

// backoffDelay computes min(initial * factor^(attempt-1) + uniform[0, initial), max).
// The jitter additive is re-sampled on every call.
func (e *RetryExecutor) backoffDelay(attempt int) time.Duration {
	base := time.Duration(float64(e.initialDelay) * math.Pow(e.factor, float64(attempt-1)))
	if base < 0 || base > e.maxDelay {
		// float overflow on extreme factors lands here too
		return e.maxDelay
	}
	jitter := time.Duration(rand.Float64() * float64(e.initialDelay))
	if d := base + jitter; d < e.maxDelay {
		return d
	}
	return e.maxDelay
}

// parseDescription recovers "provider" and "CHANNEL" from a description of
// the form "provider/CHANNEL notificationId=...".
func parseDescription(desc string) (string, model.Channel) {
	slash := strings.IndexByte(desc, '/')
	if slash <= 0 {
		return "unknown", "unknown"
	}
	provider := desc[:slash]
	rest := desc[slash+1:]
	if space := strings.IndexByte(rest, ' '); space > 0 {
		return provider, model.Channel(rest[:space])
	}
	return provider, "unknown"
}
