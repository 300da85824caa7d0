package engine

import (
	"errors"

	"github.com/dukex/deskflow/pkg/persistence"
)

var (
	// ErrMissingUserID rejects a trigger or approval without a user.
	ErrMissingUserID = errors.New("userId is required")
	// ErrLoadPlaybooks wraps a storage failure while loading the user's playbooks.
	ErrLoadPlaybooks = errors.New("failed to load playbooks")
	// ErrDuplicateTrigger is returned when the idempotency key was already claimed.
	ErrDuplicateTrigger = errors.New("duplicate trigger")

	ErrExecutionNotFound = persistence.ErrExecutionNotFound
	ErrNotPending        = errors.New("execution is not pending approval")
	ErrAlreadyApproved   = errors.New("execution already approved")
	ErrForbidden         = errors.New("execution belongs to another user")

	ErrConfidenceOutOfRange = errors.New("confidence out of range")
	ErrPlaybookPanic        = errors.New("playbook evaluation panicked")
)
