package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "429 status", err: errors.New("googleapi: Error 429: rate limit"), expected: true},
		{name: "resource exhausted", err: errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), expected: true},
		{name: "quota message", err: errors.New("quota exceeded for model"), expected: true},
		{name: "ordinary failure", err: errors.New("connection reset by peer"), expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.expected {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected time.Duration
	}{
		{name: "please retry phrasing", err: errors.New("Error 429: Please retry in 7s"), expected: 7 * time.Second},
		{name: "retryDelay field", err: errors.New(`details: retryDelay: 12s`), expected: 12 * time.Second},
		{name: "fractional seconds", err: errors.New("Please retry in 2.5s"), expected: 2500 * time.Millisecond},
		{name: "no delay hint", err: errors.New("some other error"), expected: 0},
		{name: "nil", err: nil, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRetryDelay(tt.err); got != tt.expected {
				t.Errorf("ExtractRetryDelay = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateBackoffBounds(t *testing.T) {
	policy := NewDefaultRetryPolicy()
	for attempt := 0; attempt < 10; attempt++ {
		got := policy.CalculateBackoff(attempt, 0)
		if got <= 0 {
			t.Fatalf("attempt %d: backoff %v not positive", attempt, got)
		}
		if got > policy.MaxBackoff {
			t.Fatalf("attempt %d: backoff %v exceeds cap %v", attempt, got, policy.MaxBackoff)
		}
	}
}

func TestCalculateBackoffUsesAPIDelay(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        time.Minute,
		BackoffMultiplier: 2,
	}
	// API-suggested delay of 10s plus a second of headroom, with up to
	// 25% jitter either way.
	got := policy.CalculateBackoff(0, 10*time.Second)
	if got < 8*time.Second || got > 14*time.Second {
		t.Errorf("backoff %v outside expected jitter window for an 11s base", got)
	}
}

func TestExecuteStopsAfterSuccess(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2}
	calls := 0

	err := policy.Execute(context.Background(), arbor.NewLogger(), "test", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute returned %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffMultiplier: 2}
	calls := 0
	wantErr := errors.New("permanent")

	err := policy.Execute(context.Background(), arbor.NewLogger(), "test", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute returned %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, arbor.NewLogger(), "test", func(ctx context.Context) error {
			return errors.New("always fails")
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Execute returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
}
