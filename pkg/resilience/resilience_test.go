package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", failures: 0, err: errBoom, attempts: 3, wantCalls: 1},
		{name: "recovers", failures: 2, err: errBoom, attempts: 3, wantCalls: 3},
		{name: "exhausted", failures: 5, err: errBoom, attempts: 3, wantCalls: 3, wantErr: true},
		{name: "permanent", failures: 5, err: Permanent(errBoom), attempts: 3, wantCalls: 1, wantErr: true},
		{name: "circuit open", failures: 5, err: ErrCircuitOpen, attempts: 3, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.name, fastRetry(tt.attempts), func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if err != nil && !errors.Is(err, errBoom) && !errors.Is(err, ErrCircuitOpen) {
				t.Errorf("err %v does not wrap the cause", err)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "cancel", RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) != nil")
	}
	wrapped := Permanent(errBoom)
	if !IsPermanent(wrapped) || !errors.Is(wrapped, errBoom) {
		t.Errorf("Permanent lost its cause: %v", wrapped)
	}
	if IsPermanent(errBoom) {
		t.Error("plain error reported permanent")
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	now := time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)
	var transitions []State
	cb := NewCircuitBreaker("feed", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			if name != "feed" {
				t.Errorf("name = %q", name)
			}
			transitions = append(transitions, to)
		},
	})
	cb.now = func() time.Time { return now }
	fail := func() error { return errBoom }
	ok := func() error { return nil }

	cb.Execute(fail)
	if cb.GetState() != StateClosed {
		t.Fatalf("state after 1 failure = %v", cb.GetState())
	}
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state after threshold = %v", cb.GetState())
	}
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker ran fn: %v", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state after good probe = %v", cb.GetState())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerPermanentIsNotFailure(t *testing.T) {
	cb := NewCircuitBreaker("feed", CircuitBreakerConfig{FailureThreshold: 1})
	err := cb.Execute(func() error { return Permanent(errBoom) })
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("permanent error tripped the breaker")
	}
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	now := time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("feed", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }
	cb.Execute(func() error { return errBoom })
	now = now.Add(time.Second)
	cb.Execute(func() error { return errBoom })
	if cb.GetState() != StateOpen {
		t.Errorf("state = %v, want open", cb.GetState())
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Errorf("state after Reset = %v", cb.GetState())
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if err := WithTimeout(context.Background(), 0, "none", func(context.Context) error { return nil }); err != nil {
		t.Errorf("zero timeout: %v", err)
	}
}

func TestPolicyDo(t *testing.T) {
	cb := NewCircuitBreaker("feed", CircuitBreakerConfig{FailureThreshold: 10})
	p := Policy{Name: "feed", Retry: fastRetry(3), Timeout: time.Second, Breaker: cb}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if _, ok := ctx.Deadline(); !ok {
			t.Error("attempt context has no deadline")
		}
		if calls < 2 {
			return errBoom
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Do = %v after %d calls", err, calls)
	}
}
