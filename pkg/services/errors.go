// Package services provides playbook management on top of the persistence layer.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/deskflow/pkg/persistence"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrInvalidPlaybook  = errors.New("invalid playbook")
	ErrInvalidTrigger   = errors.New("invalid trigger")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidAction    = errors.New("invalid action")
)

// ErrPlaybookNotFound is returned when a playbook does not exist (404 Not Found).
var ErrPlaybookNotFound = persistence.ErrPlaybookNotFound

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
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyUserID) ||
		errors.Is(err, ErrInvalidPlaybook) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrInvalidAction)
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

// Code returns the API error code carried by err, if any.
func Code(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}
