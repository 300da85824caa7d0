package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/google/uuid"
)

const executionsCollection = "executions"

// ExecutionRepository handles execution log file operations.
type ExecutionRepository struct {
	persistence *Persistence
}

// Record writes the execution row and, for executed rows, the updated playbook counters.
// The row is removed again when the counter update fails.
func (er *ExecutionRepository) Record(_ context.Context, execution *models.PlaybookExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}

	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Record", execution.ID, err)
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	if execution.TriggerData == nil {
		execution.TriggerData = make(map[string]any)
	}

	er.persistence.mu.Lock()
	defer er.persistence.mu.Unlock()

	if _, err := os.Stat(er.persistence.path(executionsCollection, execution.ID)); err == nil {
		return persistence.NewExecutionError("Record", execution.ID, persistence.ErrExecutionConflict)
	}

	if execution.ApprovedExecutionID != "" {
		approved, err := er.approvals(execution.ApprovedExecutionID)
		if err != nil {
			return persistence.NewExecutionError("Record", execution.ID, err)
		}

		if len(approved) > 0 {
			return persistence.NewExecutionError("Record", execution.ID, persistence.ErrExecutionConflict)
		}
	}

	var playbook *models.Playbook

	if execution.Status == models.ExecutionStatusExecuted {
		var err error

		playbook, err = er.persistence.playbookRepo.load(execution.PlaybookID)
		if err != nil {
			return err
		}
	}

	if err := er.persistence.write(executionsCollection, execution.ID, execution); err != nil {
		return persistence.NewExecutionError("Record", execution.ID, err)
	}

	if playbook == nil {
		return nil
	}

	executedAt := execution.CreatedAt
	playbook.ExecutionCount++
	playbook.LastExecutedAt = &executedAt

	if err := er.persistence.write(playbooksCollection, playbook.ID, playbook); err != nil {
		_ = os.Remove(er.persistence.path(executionsCollection, execution.ID))

		return persistence.NewPlaybookError("Record", playbook.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.PlaybookExecution, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	er.persistence.mu.Lock()
	defer er.persistence.mu.Unlock()

	return er.load(id)
}

func (er *ExecutionRepository) ListByPlaybook(_ context.Context, playbookID string, limit int) ([]*models.PlaybookExecution, error) {
	er.persistence.mu.Lock()
	defer er.persistence.mu.Unlock()

	executions, err := er.filter(func(e *models.PlaybookExecution) bool {
		return e.PlaybookID == playbookID
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(executions) > limit {
		executions = executions[:limit]
	}

	return executions, nil
}

func (er *ExecutionRepository) FindApproval(_ context.Context, pendingExecutionID string) (*models.PlaybookExecution, error) {
	er.persistence.mu.Lock()
	defer er.persistence.mu.Unlock()

	executions, err := er.approvals(pendingExecutionID)
	if err != nil {
		return nil, err
	}

	if len(executions) == 0 {
		return nil, persistence.NewExecutionError("FindApproval", pendingExecutionID, persistence.ErrExecutionNotFound)
	}

	return executions[0], nil
}

func (er *ExecutionRepository) load(id string) (*models.PlaybookExecution, error) {
	var execution models.PlaybookExecution

	err := er.persistence.read(executionsCollection, id, &execution)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) approvals(pendingExecutionID string) ([]*models.PlaybookExecution, error) {
	return er.filter(func(e *models.PlaybookExecution) bool {
		return e.ApprovedExecutionID == pendingExecutionID
	})
}

// filter returns matching rows, newest first. Callers hold the lock.
func (er *ExecutionRepository) filter(keep func(*models.PlaybookExecution) bool) ([]*models.PlaybookExecution, error) {
	ids, err := er.persistence.ids(executionsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	var executions []*models.PlaybookExecution

	for _, id := range ids {
		execution, err := er.load(id)
		if err != nil {
			// Skip invalid files
			continue
		}

		if keep(execution) {
			executions = append(executions, execution)
		}
	}

	sort.SliceStable(executions, func(i, j int) bool {
		if executions[i].CreatedAt.Equal(executions[j].CreatedAt) {
			return executions[i].ID > executions[j].ID
		}

		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	return executions, nil
}
