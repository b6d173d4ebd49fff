package retry

import (
	"context"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d, want success on first try", err, calls)
	}
}

func TestDoRetriesRecoverable(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewProviderError("transient", errors.ErrRateLimited)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	p := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.NewProviderError("always down", errors.ErrTimeout)
	})
	if err == nil {
		t.Fatal("expected the last error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 1 initial + 2 retries", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return errors.NewProviderError("bad key", errors.ErrAuthFailure).WithRetryable(false)
	})
	if err == nil || calls != 1 {
		t.Errorf("err = %v, calls = %d, want immediate failure", err, calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 10, BaseDelay: time.Hour}
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, "op", func(context.Context) error {
		calls++
		return errors.NewProviderError("transient", errors.ErrTimeout)
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 before the backoff sleep was cancelled", calls)
	}
}

func TestDoBackoffDoubles(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		OnRetry: func(_ int, delay time.Duration, _ error) {
			delays = append(delays, delay)
		},
	}
	_ = p.Do(context.Background(), "op", func(context.Context) error {
		return errors.NewProviderError("transient", errors.ErrTimeout)
	})

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("got %d retries, want %d", len(delays), len(want))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}
