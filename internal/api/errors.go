package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("backend request failed")
	// ErrAuth reports rejected credentials or a rejected token.
	ErrAuth = errors.New("authentication failed")
	// ErrValidation reports a required field that is missing or out of range.
	ErrValidation = errors.New("invalid input")
)

// StatusError is returned for a non-2xx backend response. It unwraps to
// ErrAuth or ErrNetwork.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// Validationf builds an ErrValidation with a field-level message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
