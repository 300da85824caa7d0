// Package persistence provides the storage abstraction for playbooks and their execution log.
package persistence

import (
	"context"

	"github.com/dukex/deskflow/pkg/models"
)

type Persistence interface {
	PlaybookRepository() PlaybookRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PlaybookRepository stores user-defined playbooks. Lists are ordered by creation time, oldest first.
type PlaybookRepository interface {
	// EnabledByUser returns the enabled playbooks owned by userID.
	EnabledByUser(ctx context.Context, userID string) ([]*models.Playbook, error)
	// ListByUser returns every playbook owned by userID, enabled or not.
	ListByUser(ctx context.Context, userID string) ([]*models.Playbook, error)
	// EnabledByTriggerType returns the enabled playbooks of all users with the given trigger type.
	EnabledByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Playbook, error)
	GetByID(ctx context.Context, id string) (*models.Playbook, error)
	// Save creates or replaces a playbook. Counters are left untouched on update.
	Save(ctx context.Context, playbook *models.Playbook) error
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository is the append-only execution log.
type ExecutionRepository interface {
	// Record inserts exactly one row. For executed rows it also increments the playbook
	// execution count and sets its last executed time in the same unit of work.
	Record(ctx context.Context, execution *models.PlaybookExecution) error
	GetByID(ctx context.Context, id string) (*models.PlaybookExecution, error)
	// ListByPlaybook returns the newest rows first. A non-positive limit returns everything.
	ListByPlaybook(ctx context.Context, playbookID string, limit int) ([]*models.PlaybookExecution, error)
	// FindApproval returns the executed row that approved pendingExecutionID, or ErrExecutionNotFound.
	FindApproval(ctx context.Context, pendingExecutionID string) (*models.PlaybookExecution, error)
}
