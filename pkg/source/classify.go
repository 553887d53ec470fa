package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/opscart/cost-advisor/pkg/resilience"
)

// classifyStatus maps an upstream HTTP status to the retry taxonomy.
// Authorization, validation, and feature-not-enabled responses are
// terminal; throttling and server errors are transient.
func classifyStatus(provider string, status int) error {
	err := fmt.Errorf("%s API returned status %d", provider, status)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return resilience.Terminal(fmt.Errorf("authorization denied: %w", err))
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return resilience.Terminal(fmt.Errorf("request validation: %w", err))
	case status == http.StatusNotFound:
		return resilience.Terminal(fmt.Errorf("feature not enabled: %w", err))
	case status == http.StatusTooManyRequests:
		return resilience.Transient(fmt.Errorf("throttled: %w", err))
	case status >= 500:
		return resilience.Transient(err)
	default:
		return resilience.Transient(err)
	}
}

// classifyTransport maps a transport-level failure. Context cancellation
// passes through untouched so deadlines are not retried against.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return resilience.Transient(fmt.Errorf("%s request failed: %w", provider, err))
}
