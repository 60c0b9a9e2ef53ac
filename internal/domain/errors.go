package domain

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrNotFound          = errors.New("not found")
	ErrOwnerNotFound     = fmt.Errorf("owner %w", ErrNotFound)
	ErrStatementNotFound = fmt.Errorf("statement %w", ErrNotFound)

	// Correction errors
	ErrConcurrentUpdate = errors.New("concurrent update conflict: balance version changed")

	// Replay errors
	ErrMalformedEntry = errors.New("malformed ledger entry")

	// Input errors
	ErrValidation       = errors.New("validation failure")
	ErrRulesUnavailable = errors.New("classification rules not loaded")
)

// ValidationError describes an input that was rejected before any computation began.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// MalformedEntryError reports a ledger entry skipped during replay.
type MalformedEntryError struct {
	EntryID string
	Reason  string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrMalformedEntry, e.EntryID, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error { return ErrMalformedEntry }
