package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hupe1980/intelmarket/logging"
)

// FailurePolicy decides how component errors are classified and retried.
// There is no global handler: every component that needs retry semantics
// receives a policy explicitly at construction time.
//
// Classification rules:
//   - Validation / state errors (CodeInvalidInput, CodeStateConflict,
//     CodeNotFound, CodeAlreadyExists, CodeAlreadyRated) fail fast, never retried.
//   - Transient errors (ErrUnavailable, context deadline, network-looking
//     message patterns) are retried with bounded exponential backoff.
//   - Everything else is surfaced once, unretried.
type FailurePolicy struct {
	// MaxAttempts is the total number of tries including the first. Values
	// below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the delay before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff growth. Zero means uncapped.
	MaxDelay time.Duration

	logger *loggerAdapter
}

// NewFailurePolicy builds a policy with the given bounds. A nil logger is
// replaced with a no-op logger.
func NewFailurePolicy(maxAttempts int, baseDelay, maxDelay time.Duration, logger logging.Logger) *FailurePolicy {
	return &FailurePolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		logger:      newLoggerAdapter(logger),
	}
}

// transientPatterns are message fragments that identify network-shaped
// failures from collaborators that do not wrap ErrUnavailable.
var transientPatterns = []string{
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"too many requests",
}

// Retryable reports whether err is worth retrying under this policy.
func (p *FailurePolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch CodeOf(err) {
	case CodeInvalidInput, CodeStateConflict, CodeNotFound, CodeAlreadyExists, CodeAlreadyRated:
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pat := range transientPatterns {
		if strings.Contains(msg, pat) {
			return true
		}
	}
	return false
}

// Execute runs fn, retrying transient failures with exponential backoff until
// the attempt budget is spent or ctx is cancelled. Validation errors surface
// immediately. The returned error is the last one observed.
func (p *FailurePolicy) Execute(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !p.Retryable(err) || attempt == attempts {
			return err
		}
		p.logger.LogWarn("retrying operation", "operation", op, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
