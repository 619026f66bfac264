// Package resilience provides retry with exponential backoff for remote calls
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/soundalike/domain"
)

// Retry configuration constants
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMultiplier   = 2.0
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryPolicy configures Retry. The zero value is usable and means
// DefaultMaxAttempts attempts, 1s initial delay, doubling.
type RetryPolicy struct {
	MaxAttempts  int           // total attempts including the first, >= 1
	InitialDelay time.Duration // wait after the first failure
	Multiplier   float64       // backoff base
	MaxDelay     time.Duration // 0 means uncapped
	IsRetryable  func(error) bool
	Sleep        Sleeper
	Logger       *zap.Logger
}

// DefaultRetryPolicy returns 3 attempts with a 1s, 2s, 4s schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		IsRetryable:  IsRetryable,
		Sleep:        SleepContext,
	}
}

// Delay returns the wait after the given zero-based failed attempt:
// InitialDelay * Multiplier^attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// RetryError is returned once Retry gives up
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("gave up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Retry runs op until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Every retryable failure is followed by
// Delay(attempt), the final one included, so 3 attempts wait 1s, 2s, 4s.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		attempts++
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !p.IsRetryable(err) {
			break
		}

		delay := p.Delay(attempt)
		p.Logger.Warn("Backing off after error",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := p.Sleep(ctx, delay); err != nil {
			break
		}
	}

	return zero, &RetryError{Attempts: attempts, Err: lastErr}
}

// SleepContext blocks for d or until ctx is cancelled
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError carries an HTTP status from a REST backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable classifies errors from every remote backend: gRPC status
// codes, HTTP statuses, and domain kinds. Unknown errors are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch domain.KindOf(err) {
	case domain.KindConfig, domain.KindSourceNotFound, domain.KindInvalidInput,
		domain.KindTranscriptionFailure, domain.KindAnalysisParse:
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return IsRetryableStatus(se.StatusCode)
	}
	if s, ok := status.FromError(err); ok {
		return IsRetryableGRPC(s.Code())
	}
	return true
}

// IsRetryableGRPC reports whether a gRPC status code is worth retrying
func IsRetryableGRPC(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal, codes.Unknown:
		return true
	default:
		return false
	}
}

// IsRetryableStatus reports whether an HTTP status is worth retrying
func IsRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	if p.IsRetryable == nil {
		p.IsRetryable = IsRetryable
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return p
}
