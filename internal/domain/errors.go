package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced member, subscription or plan
	// does not exist. Surfaced directly to the caller; no retry.
	ErrNotFound = errors.New("record not found")

	// ErrValidation reports a missing or malformed required field.
	// Surfaced directly to the caller; no retry.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail reports a signup with an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidPlan reports an unknown plan kind presented to the period
	// calculator. Treated as a configuration defect: surfaced and logged
	// loudly, never silently defaulted to a plan length.
	ErrInvalidPlan = errors.New("unknown plan kind")

	// ErrPaymentDeclined reports an explicit decline from the gateway.
	// Recorded as a failed payment, not a transport error.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrGatewayUnavailable reports a network failure or timeout talking to
	// the gateway. Recorded identically to a decline for state purposes but
	// tagged distinctly for operational triage.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrNotificationFailed reports a failed email dispatch. It never
	// unwinds the operation that triggered it.
	ErrNotificationFailed = errors.New("notification dispatch failed")
)

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects per-field validation failures for one request.
type ValidationErrors []ValidationError

// Add appends a field failure.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any field failed validation.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s %s", e[0].Field, e[0].Message)
	}
	return fmt.Sprintf("validation failed: %d invalid fields", len(e))
}

// Is makes every ValidationErrors match ErrValidation for errors.Is checks.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
