package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testExecutorConfig() Config {
	return Config{
		MaxRetries:       0,
		BaseDelay:        time.Millisecond,
		MaxDelay:         2 * time.Millisecond,
		FailureThreshold: 3,
		RecoveryTimeout:  50 * time.Millisecond,
	}
}

func failingOp(calls *int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		*calls++
		return 0, Transient(errors.New("upstream down"))
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	exec := NewExecutor[int]("test-open", testExecutorConfig(), zerolog.Nop())

	calls := 0
	for i := 0; i < 3; i++ {
		if _, err := exec.Execute(context.Background(), failingOp(&calls)); err == nil {
			t.Fatalf("Expected failure on call %d", i+1)
		}
	}

	if state := exec.State(); state != "open" {
		t.Fatalf("Expected open after 3 consecutive failures, got %s", state)
	}

	// The open breaker must reject without invoking the operation.
	_, err := exec.Execute(context.Background(), failingOp(&calls))
	if !IsCircuitOpen(err) {
		t.Errorf("Expected circuit-open rejection, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected operation untouched while open, got %d calls", calls)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	exec := NewExecutor[int]("test-recover", testExecutorConfig(), zerolog.Nop())

	calls := 0
	for i := 0; i < 3; i++ {
		exec.Execute(context.Background(), failingOp(&calls))
	}
	if state := exec.State(); state != "open" {
		t.Fatalf("Expected open, got %s", state)
	}

	time.Sleep(60 * time.Millisecond)

	// One successful trial call closes the breaker.
	result, err := exec.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Trial call failed: %v", err)
	}
	if result != 42 {
		t.Errorf("Expected 42, got %d", result)
	}
	if state := exec.State(); state != "closed" {
		t.Errorf("Expected closed after successful trial, got %s", state)
	}
}

func TestBreakerReopensOnFailedTrial(t *testing.T) {
	exec := NewExecutor[int]("test-reopen", testExecutorConfig(), zerolog.Nop())

	calls := 0
	for i := 0; i < 3; i++ {
		exec.Execute(context.Background(), failingOp(&calls))
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := exec.Execute(context.Background(), failingOp(&calls)); err == nil {
		t.Fatal("Expected trial call to fail")
	}
	if state := exec.State(); state != "open" {
		t.Errorf("Expected open after failed trial, got %s", state)
	}
}

func TestExecutorRetriesInsideOneBreakerCall(t *testing.T) {
	cfg := testExecutorConfig()
	cfg.MaxRetries = 2
	exec := NewExecutor[string]("test-retry", cfg, zerolog.Nop())

	attempts := 0
	result, err := exec.Execute(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", Transient(errors.New("flaky"))
		}
		return "recovered", nil
	})

	if err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if result != "recovered" {
		t.Errorf("Expected recovered, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	// The retried-then-successful call counts as one breaker success.
	if count := exec.FailureCount(); count != 0 {
		t.Errorf("Expected 0 consecutive failures, got %d", count)
	}
	if state := exec.State(); state != "closed" {
		t.Errorf("Expected closed, got %s", state)
	}
}
