package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFunnelNotFound indicates a funnel was not found by the given identifier.
	ErrFunnelNotFound = errors.New("funnel not found")

	// ErrExecutionNotFound indicates a funnel execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrLeadNotFound indicates a lead was not found by the given identifier.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrTemplateNotFound indicates a message template was not found.
	ErrTemplateNotFound = errors.New("message template not found")
)

// StoreError wraps repository errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	ID  string // Record ID if applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFunnelNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}

// IsFunnelNotFound reports whether err wraps ErrFunnelNotFound.
func IsFunnelNotFound(err error) bool {
	return errors.Is(err, ErrFunnelNotFound)
}

// IsLeadNotFound reports whether err wraps ErrLeadNotFound.
func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

// IsTemplateNotFound reports whether err wraps ErrTemplateNotFound.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
