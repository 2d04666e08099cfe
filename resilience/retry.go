package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"time"

	"github.com/skillsenselab/flowkit/errors"
)

// Class is the retry classification of an error.
type Class int

const (
	// Transient errors may succeed on retry.
	Transient Class = iota
	// Terminal errors exhaust the policy immediately.
	Terminal
)

// Classifier decides whether an error is worth retrying.
type Classifier func(error) Class

// DefaultClassifier follows the error taxonomy: AppError carries its own
// retryability, deadline expiry is transient, context cancellation is
// terminal (the run is going away), and unknown errors default to transient
// so flaky infrastructure is still bounded by the policy.
func DefaultClassifier(err error) Class {
	switch {
	case err == nil:
		return Terminal
	case stderrors.Is(err, context.Canceled):
		return Terminal
	case stderrors.Is(err, context.DeadlineExceeded):
		return Transient
	case errors.IsRetryable(err):
		return Transient
	default:
		return Terminal
	}
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// BaseDelay is the initial delay between attempts.
	BaseDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor.
	Multiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0 fraction of the delay).
	Jitter float64
	// Classify distinguishes transient from terminal errors.
	Classify Classifier
	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryPolicy returns sensible defaults: 3 attempts, 500ms base delay
// doubling up to 30s, with ±20% jitter to avoid thundering-herd retries when
// many tasks fail simultaneously.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
		Classify:    DefaultClassifier,
	}
}

// applyDefaults fills zero fields so a partially specified policy behaves.
func (p RetryPolicy) applyDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.Classify == nil {
		p.Classify = DefaultClassifier
	}
	return p
}

// RunWithRetry executes body up to policy.MaxAttempts times, sleeping with
// exponential backoff between attempts. It returns the number of attempts
// made and the last error. Terminal errors stop retrying immediately; a
// cancelled context aborts the backoff sleep and returns ctx.Err.
func RunWithRetry(ctx context.Context, body func(ctx context.Context) error, policy RetryPolicy) (int, error) {
	policy = policy.applyDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		default:
		}

		err := body(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if policy.Classify(err) == Terminal {
			return attempt, err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		backoff := backoffDelay(attempt, policy)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return policy.MaxAttempts, lastErr
}

// backoffDelay computes min(base * multiplier^(attempt-1), cap) with jitter.
func backoffDelay(attempt int, policy RetryPolicy) time.Duration {
	delay := float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(attempt-1))

	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	if policy.Jitter > 0 {
		jitterRange := delay * policy.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = float64(policy.BaseDelay)
	}
	return time.Duration(delay)
}
