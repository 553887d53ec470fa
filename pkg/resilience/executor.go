// Package resilience wraps every upstream source call in a shared
// retry/backoff policy and a per-source circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/opscart/cost-advisor/pkg/metrics"
)

// Config parameterizes one executor.
type Config struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	FailureThreshold uint32
	RecoveryTimeout  time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		FailureThreshold: 3,
		RecoveryTimeout:  5 * time.Minute,
	}
}

// Executor combines the retry policy with a circuit breaker. Each source
// owns one executor; the breaker state lives for the lifetime of the
// owning orchestrator and is safe for concurrent use.
//
// The breaker counts whole calls: a call that exhausts its retries is one
// failure. After FailureThreshold consecutive failures the breaker opens
// and rejects calls without invoking the operation; after RecoveryTimeout
// it admits exactly one trial call whose outcome decides the next state.
type Executor[T any] struct {
	name   string
	policy RetryPolicy
	cb     *gobreaker.CircuitBreaker[T]
	logger zerolog.Logger
}

// NewExecutor creates an executor named after its source.
func NewExecutor[T any](name string, cfg Config, logger zerolog.Logger) *Executor[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("source", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Executor[T]{
		name:   name,
		policy: NewRetryPolicy(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay),
		cb:     cb,
		logger: logger,
	}
}

// Execute runs op under the breaker and retry policy.
func (e *Executor[T]) Execute(ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	result, err := e.cb.Execute(func() (T, error) {
		return Do(ctx, e.policy, op)
	})
	if err != nil {
		if IsCircuitOpen(err) {
			metrics.SourceFetchTotal.WithLabelValues(e.name, "rejected").Inc()
			e.logger.Warn().Str("source", e.name).Err(err).Msg("call rejected by open circuit")
		} else {
			metrics.SourceFetchTotal.WithLabelValues(e.name, "failure").Inc()
		}
		return result, err
	}

	metrics.SourceFetchTotal.WithLabelValues(e.name, "success").Inc()
	return result, nil
}

// State reports the breaker state as closed, half-open, or open.
func (e *Executor[T]) State() string {
	return stateToString(e.cb.State())
}

// FailureCount reports the breaker's consecutive failure count.
func (e *Executor[T]) FailureCount() uint32 {
	return e.cb.Counts().ConsecutiveFailures
}

// IsCircuitOpen reports whether err means the breaker rejected the call
// without invoking the operation.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
