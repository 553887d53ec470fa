package resilience

import "errors"

// TerminalError wraps an upstream failure that retrying cannot fix:
// authorization denied, request validation, feature not enabled.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return "terminal: " + e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// TransientError wraps an upstream failure worth retrying: throttling,
// 5xx responses, timeouts.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Terminal marks err as non-retryable. Returns nil for a nil err.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// Transient marks err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTerminal reports whether err is marked terminal anywhere in its chain.
// Unclassified errors are treated as transient by the retry policy, so
// source clients must mark terminal classes explicitly.
func IsTerminal(err error) bool {
	var terminal *TerminalError
	return errors.As(err, &terminal)
}
