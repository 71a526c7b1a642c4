// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrInvalidFlowID indicates an identifier a backend cannot address, such as
	// one that would escape the file store's directory.
	ErrInvalidFlowID = errors.New("invalid flow id")

	// ErrInvalidFlowData indicates stored data could not be decoded into a flow.
	ErrInvalidFlowData = errors.New("invalid flow data")
)

// FlowError wraps flow-related errors with additional context.
type FlowError struct {
	Op      string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	FlowID  string // Flow ID if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for flow %s: %s (%v)", e.Op, e.FlowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for flow errors.
func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{
		Op:     op,
		FlowID: flowID,
		Err:    err,
	}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsInvalidFlowID checks if an error indicates an unusable flow identifier.
func IsInvalidFlowID(err error) bool {
	return errors.Is(err, ErrInvalidFlowID)
}
