package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testPolicy(maxRetries int) (RetryPolicy, *[]time.Duration) {
	delays := &[]time.Duration{}
	policy := NewRetryPolicy(maxRetries, time.Second, 30*time.Second)
	policy.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return policy, delays
}

func TestDelaySchedule(t *testing.T) {
	policy := NewRetryPolicy(5, time.Second, 30*time.Second)

	expected := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for attempt, want := range expected {
		if got := policy.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	policy, delays := testPolicy(3)

	attempts := 0
	result, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", Transient(fmt.Errorf("attempt %d failed", attempts))
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do() returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result ok, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	// Backoff must not decrease between attempts.
	for i := 1; i < len(*delays); i++ {
		if (*delays)[i] < (*delays)[i-1] {
			t.Errorf("Delay decreased: %v after %v", (*delays)[i], (*delays)[i-1])
		}
	}
}

func TestDoTerminalErrorSingleAttempt(t *testing.T) {
	policy, delays := testPolicy(3)

	attempts := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
		attempts++
		return "", Terminal(errors.New("access denied"))
	})

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !IsTerminal(err) {
		t.Errorf("Expected terminal error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for terminal error, got %d", attempts)
	}
	if len(*delays) != 0 {
		t.Errorf("Expected no backoff for terminal error, got %d sleeps", len(*delays))
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	policy, _ := testPolicy(2)

	attempts := 0
	lastErr := errors.New("still down")
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, Transient(lastErr)
	})

	if attempts != 3 {
		t.Errorf("Expected max_retries+1 = 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("Expected last error to be returned, got %v", err)
	}
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, Transient(errors.New("flaky"))
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestErrorWrapping(t *testing.T) {
	inner := errors.New("boom")

	if !IsTerminal(Terminal(inner)) {
		t.Error("Terminal error not detected")
	}
	if IsTerminal(Transient(inner)) {
		t.Error("Transient error reported as terminal")
	}
	if IsTerminal(inner) {
		t.Error("Unclassified error reported as terminal")
	}
	if !errors.Is(Terminal(inner), inner) {
		t.Error("Terminal wrapper broke the error chain")
	}
	if Terminal(nil) != nil || Transient(nil) != nil {
		t.Error("Wrapping nil should return nil")
	}
}
