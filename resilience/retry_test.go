package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/skillsenselab/flowkit/errors"
)

func quickPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
		Classify:    DefaultClassifier,
	}
}

func TestRunWithRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	attempts, err := RunWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, quickPolicy(3))

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("expected 1 attempt, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestRunWithRetry_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	attempts, err := RunWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.Transient("flaky source")
		}
		return nil
	}, quickPolicy(5))

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRunWithRetry_ExhaustsAttempts(t *testing.T) {
	lastErr := errors.Transient("still flaky")
	calls := 0
	attempts, err := RunWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return lastErr
	}, quickPolicy(3))

	if attempts != 3 || calls != 3 {
		t.Errorf("expected 3 attempts, got attempts=%d calls=%d", attempts, calls)
	}
	if !stderrors.Is(err, lastErr) {
		t.Errorf("expected last error returned, got %v", err)
	}
}

func TestRunWithRetry_TerminalStopsImmediately(t *testing.T) {
	calls := 0
	attempts, err := RunWithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.Terminal("schema mismatch")
	}, quickPolicy(5))

	if calls != 1 || attempts != 1 {
		t.Errorf("terminal error must not retry: attempts=%d calls=%d", attempts, calls)
	}
	if !errors.IsCode(err, errors.ErrCodeTerminalExecution) {
		t.Errorf("expected terminal error, got %v", err)
	}
}

func TestRunWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	policy := quickPolicy(10)
	policy.BaseDelay = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := RunWithRetry(ctx, func(ctx context.Context) error {
		calls++
		return errors.Transient("flaky")
	}, policy)

	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls >= 10 {
		t.Errorf("expected cancellation before exhaustion, got %d calls", calls)
	}
}

func TestRunWithRetry_OnRetryHook(t *testing.T) {
	var hookAttempts []int
	policy := quickPolicy(3)
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		hookAttempts = append(hookAttempts, attempt)
	}

	RunWithRetry(context.Background(), func(ctx context.Context) error {
		return errors.Transient("flaky")
	}, policy)

	if len(hookAttempts) != 2 {
		t.Fatalf("expected hook after attempts 1 and 2, got %v", hookAttempts)
	}
}

func TestBackoffDelay_ExponentialWithCap(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}.applyDefaults()
	policy.Jitter = 0

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second}, // capped
		{8, time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt, policy); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoffDelay_JitterBounds(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     0.2,
	}.applyDefaults()

	for i := 0; i < 100; i++ {
		d := backoffDelay(1, policy)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±20%% of base", d)
		}
	}
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"transient app error", errors.Transient("flaky"), Transient},
		{"timeout", errors.TaskTimeout("extract"), Transient},
		{"terminal app error", errors.Terminal("bad schema"), Terminal},
		{"quality gate", errors.QualityThresholdNotMet("gate", 0.8, 0.95), Terminal},
		{"deadline exceeded", context.DeadlineExceeded, Transient},
		{"cancelled", context.Canceled, Terminal},
		{"unknown error", stderrors.New("boom"), Transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultClassifier(tt.err); got != tt.want {
				t.Errorf("DefaultClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
