// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPlaybookNotFound indicates a playbook was not found by the given identifier.
	ErrPlaybookNotFound = errors.New("playbook not found")

	// ErrExecutionNotFound indicates an execution row was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidID indicates an identifier that cannot be stored safely.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrExecutionConflict indicates the row was already recorded, or its pending row was already approved.
	ErrExecutionConflict = errors.New("execution conflicts with an existing row")
)

// PlaybookError wraps playbook-related errors with additional context.
type PlaybookError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Record")
	PlaybookID string
	Err        error
}

func (e *PlaybookError) Error() string {
	return fmt.Sprintf("%s operation failed for playbook %s: %v", e.Op, e.PlaybookID, e.Err)
}

func (e *PlaybookError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for playbook errors.
func (e *PlaybookError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPlaybookError creates a new playbook error with context.
func NewPlaybookError(op, playbookID string, err error) *PlaybookError {
	return &PlaybookError{
		Op:         op,
		PlaybookID: playbookID,
		Err:        err,
	}
}

// ExecutionError wraps execution log errors.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsPlaybookNotFound checks if an error indicates a playbook was not found.
func IsPlaybookNotFound(err error) bool {
	return errors.Is(err, ErrPlaybookNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsExecutionConflict checks if an error indicates a duplicate execution row.
func IsExecutionConflict(err error) bool {
	return errors.Is(err, ErrExecutionConflict)
}
