// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/flowbuilder/pkg/flow"
	"github.com/dukex/flowbuilder/pkg/models"
	"github.com/dukex/flowbuilder/pkg/persistence"
)

var (
	// ErrFlowNotFound is returned when a flow is not found.
	ErrFlowNotFound = persistence.ErrFlowNotFound
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrFlowNameRequired  = errors.New("flow name is required")
	ErrInvalidStoredFlow = errors.New("stored flow is inconsistent")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFlowNameRequired) ||
		persistence.IsInvalidFlowID(err) ||
		errors.Is(err, models.ErrUnknownNodeType) ||
		errors.Is(err, flow.ErrPayloadTypeMismatch)
}

// IsNotFoundError checks if an error names a missing flow, node or edge (HTTP 404).
func IsNotFoundError(err error) bool {
	return persistence.IsFlowNotFound(err) || flow.IsNotFound(err)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return flow.IsConnectionRejected(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
