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

const playbooksCollection = "playbooks"

// PlaybookRepository handles playbook-related file operations.
type PlaybookRepository struct {
	persistence *Persistence
}

func (pr *PlaybookRepository) EnabledByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	return pr.filter(ctx, func(p *models.Playbook) bool {
		return p.UserID == userID && p.Enabled
	})
}

func (pr *PlaybookRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	return pr.filter(ctx, func(p *models.Playbook) bool {
		return p.UserID == userID
	})
}

func (pr *PlaybookRepository) EnabledByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Playbook, error) {
	return pr.filter(ctx, func(p *models.Playbook) bool {
		return p.Enabled && p.Trigger.Type == triggerType
	})
}

func (pr *PlaybookRepository) GetByID(_ context.Context, id string) (*models.Playbook, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewPlaybookError("GetByID", id, err)
	}

	pr.persistence.mu.Lock()
	defer pr.persistence.mu.Unlock()

	return pr.load(id)
}

// Save sets the identifier and timestamps and writes the playbook.
func (pr *PlaybookRepository) Save(_ context.Context, playbook *models.Playbook) error {
	if playbook.ID == "" {
		playbook.ID = uuid.NewString()
	}

	if err := validateID(playbook.ID); err != nil {
		return persistence.NewPlaybookError("Save", playbook.ID, err)
	}

	pr.persistence.mu.Lock()
	defer pr.persistence.mu.Unlock()

	now := time.Now().UTC()

	if existing, err := pr.load(playbook.ID); err == nil {
		playbook.CreatedAt = existing.CreatedAt
		playbook.ExecutionCount = existing.ExecutionCount
		playbook.LastExecutedAt = existing.LastExecutedAt
	} else if playbook.CreatedAt.IsZero() {
		playbook.CreatedAt = now
	}

	playbook.UpdatedAt = now

	if err := pr.persistence.write(playbooksCollection, playbook.ID, playbook); err != nil {
		return persistence.NewPlaybookError("Save", playbook.ID, err)
	}

	return nil
}

func (pr *PlaybookRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewPlaybookError("Delete", id, err)
	}

	pr.persistence.mu.Lock()
	defer pr.persistence.mu.Unlock()

	err := os.Remove(pr.persistence.path(playbooksCollection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewPlaybookError("Delete", id, persistence.ErrPlaybookNotFound)
		}

		return persistence.NewPlaybookError("Delete", id, err)
	}

	return nil
}

func (pr *PlaybookRepository) load(id string) (*models.Playbook, error) {
	var playbook models.Playbook

	err := pr.persistence.read(playbooksCollection, id, &playbook)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewPlaybookError("GetByID", id, persistence.ErrPlaybookNotFound)
		}

		return nil, persistence.NewPlaybookError("GetByID", id, err)
	}

	return &playbook, nil
}

func (pr *PlaybookRepository) filter(_ context.Context, keep func(*models.Playbook) bool) ([]*models.Playbook, error) {
	pr.persistence.mu.Lock()
	defer pr.persistence.mu.Unlock()

	ids, err := pr.persistence.ids(playbooksCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}

	playbooks := make([]*models.Playbook, 0, len(ids))

	for _, id := range ids {
		playbook, err := pr.load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load playbook %s: %w", id, err)
		}

		if keep(playbook) {
			playbooks = append(playbooks, playbook)
		}
	}

	sort.SliceStable(playbooks, func(i, j int) bool {
		if playbooks[i].CreatedAt.Equal(playbooks[j].CreatedAt) {
			return playbooks[i].ID < playbooks[j].ID
		}

		return playbooks[i].CreatedAt.Before(playbooks[j].CreatedAt)
	})

	return playbooks, nil
}
