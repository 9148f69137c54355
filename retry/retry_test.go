package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailyyoga/cacheorch/routine"
)

func TestFixed_Next(t *testing.T) {
	tests := []struct {
		name      string
		policy    Fixed
		attempt   int
		wantDelay time.Duration
		wantRetry bool
	}{
		{"single attempt", Fixed{MaxAttempts: 1, Delay: time.Second}, 1, 0, false},
		{"zero attempts behaves as one", Fixed{}, 1, 0, false},
		{"first of three", Fixed{MaxAttempts: 3, Delay: time.Second}, 1, time.Second, true},
		{"second of three", Fixed{MaxAttempts: 3, Delay: time.Second}, 2, time.Second, true},
		{"last of three", Fixed{MaxAttempts: 3, Delay: time.Second}, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, retry := tt.policy.Next(tt.attempt, errors.New("x"))
			if delay != tt.wantDelay || retry != tt.wantRetry {
				t.Errorf("Next(%d) = (%v, %v), want (%v, %v)", tt.attempt, delay, retry, tt.wantDelay, tt.wantRetry)
			}
		})
	}
}

func TestExponential_Next(t *testing.T) {
	p := Exponential{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		delay, retry := p.Next(i+1, nil)
		if !retry {
			t.Fatalf("attempt %d: expected retry", i+1)
		}
		if delay != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, delay, w)
		}
	}
	if _, retry := p.Next(5, nil); retry {
		t.Error("expected no retry after MaxAttempts")
	}
}

func TestExponential_Jitter(t *testing.T) {
	p := Exponential{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond, Jitter: true}

	for i := 0; i < 50; i++ {
		delay, _ := p.Next(1, nil)
		if delay < 100*time.Millisecond || delay >= 125*time.Millisecond {
			t.Fatalf("jittered delay %v out of range", delay)
		}
	}
}

func TestExponential_Saturates(t *testing.T) {
	tests := []struct {
		name    string
		policy  Exponential
		attempt int
		want    time.Duration
	}{
		{"unbounded", Exponential{MaxAttempts: 1000, InitialDelay: time.Second}, 200, maxDuration},
		{"unbounded with jitter", Exponential{MaxAttempts: 1000, InitialDelay: time.Second, Jitter: true}, 200, maxDuration},
		{"capped", Exponential{MaxAttempts: 1000, InitialDelay: time.Second, MaxDelay: time.Minute}, 200, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, retry := tt.policy.Next(tt.attempt, nil)
			if !retry {
				t.Fatal("expected retry")
			}
			if delay != tt.want {
				t.Errorf("Next(%d) = %v, want %v", tt.attempt, delay, tt.want)
			}
		})
	}
}

func TestDo_SuccessOnRetry(t *testing.T) {
	calls := 0
	var retried []int

	attempts, err := Do(context.Background(), Fixed{MaxAttempts: 3, Delay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("onRetry attempts = %v, want [1 2]", retried)
	}
}

func TestDo_Exhausted(t *testing.T) {
	testErr := errors.New("persistent")

	attempts, err := Do(context.Background(), Fixed{MaxAttempts: 2}, func(ctx context.Context) error {
		return testErr
	}, nil)

	if !errors.Is(err, testErr) {
		t.Errorf("Do() error = %v, want %v", err, testErr)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestDo_Permanent(t *testing.T) {
	testErr := errors.New("bad request")

	attempts, err := Do(context.Background(), Fixed{MaxAttempts: 5}, func(ctx context.Context) error {
		return Permanent(testErr)
	}, nil)

	if !errors.Is(err, testErr) {
		t.Errorf("Do() error = %v, want %v", err, testErr)
	}
	if !IsPermanent(err) {
		t.Error("expected permanent error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_PanicIsAnAttempt(t *testing.T) {
	calls := 0

	attempts, err := Do(context.Background(), Fixed{MaxAttempts: 2}, func(ctx context.Context) error {
		calls++
		panic("refresh exploded")
	}, nil)

	if !errors.Is(err, routine.ErrPanicRecovered) {
		t.Errorf("Do() error = %v, want panic error", err)
	}
	if attempts != 2 || calls != 2 {
		t.Errorf("attempts = %d calls = %d, want 2 and 2", attempts, calls)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	start := time.Now()
	attempts, err := Do(ctx, Fixed{MaxAttempts: 3, Delay: time.Hour}, func(ctx context.Context) error {
		cancel()
		return errors.New("failed")
	}, nil)

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if time.Since(start) > time.Second {
		t.Error("Do should return promptly after cancellation")
	}
}

func TestDo_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	attempts, err := Do(ctx, Fixed{MaxAttempts: 3}, func(ctx context.Context) error {
		called = true
		return nil
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	if called || attempts != 0 {
		t.Errorf("op should not run, attempts = %d", attempts)
	}
}
