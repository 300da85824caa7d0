package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/google/uuid"
)

const playbookColumns = `
	id, user_id, name, description, trigger_type, trigger_config, conditions, actions,
	confidence_threshold, requires_approval, enabled, is_default, execution_count,
	last_executed_at, created_at, updated_at`

// PlaybookRepository handles playbook-related database operations.
type PlaybookRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPlaybookRepository(db *sql.DB, logger *slog.Logger) *PlaybookRepository {
	return &PlaybookRepository{db: db, logger: logger}
}

func (pr *PlaybookRepository) EnabledByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	return pr.query(ctx, `
		SELECT`+playbookColumns+`
		FROM playbooks
		WHERE user_id = $1 AND enabled = true AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, userID)
}

func (pr *PlaybookRepository) ListByUser(ctx context.Context, userID string) ([]*models.Playbook, error) {
	return pr.query(ctx, `
		SELECT`+playbookColumns+`
		FROM playbooks
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, userID)
}

func (pr *PlaybookRepository) EnabledByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Playbook, error) {
	return pr.query(ctx, `
		SELECT`+playbookColumns+`
		FROM playbooks
		WHERE trigger_type = $1 AND enabled = true AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, string(triggerType))
}

func (pr *PlaybookRepository) GetByID(ctx context.Context, id string) (*models.Playbook, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewPlaybookError("GetByID", id, persistence.ErrPlaybookNotFound)
	}

	row := pr.db.QueryRowContext(ctx, `
		SELECT`+playbookColumns+`
		FROM playbooks
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	playbook, err := scanPlaybook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPlaybookError("GetByID", id, persistence.ErrPlaybookNotFound)
		}

		return nil, persistence.NewPlaybookError("GetByID", id, err)
	}

	return playbook, nil
}

// Save upserts the playbook. Counters and creation time are owned by the database on update.
func (pr *PlaybookRepository) Save(ctx context.Context, playbook *models.Playbook) error {
	if playbook.ID == "" {
		playbook.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if playbook.CreatedAt.IsZero() {
		playbook.CreatedAt = now
	}

	playbook.UpdatedAt = now

	triggerConfig, err := json.Marshal(playbook.Trigger.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditions, err := json.Marshal(nonNil(playbook.Conditions))
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actions, err := json.Marshal(nonNil(playbook.Actions))
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO playbooks (
			id, user_id, name, description, trigger_type, trigger_config, conditions, actions,
			confidence_threshold, requires_approval, enabled, is_default, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			confidence_threshold = EXCLUDED.confidence_threshold,
			requires_approval = EXCLUDED.requires_approval,
			enabled = EXCLUDED.enabled,
			is_default = EXCLUDED.is_default,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, execution_count, last_executed_at
	`

	var lastExecutedAt sql.NullTime

	err = pr.db.QueryRowContext(ctx, query,
		playbook.ID,
		playbook.UserID,
		playbook.Name,
		playbook.Description,
		string(playbook.Trigger.Type),
		triggerConfig,
		conditions,
		actions,
		playbook.ConfidenceThreshold,
		playbook.RequiresApproval,
		playbook.Enabled,
		playbook.IsDefault,
		playbook.CreatedAt,
		playbook.UpdatedAt,
	).Scan(&playbook.CreatedAt, &playbook.ExecutionCount, &lastExecutedAt)
	if err != nil {
		return persistence.NewPlaybookError("Save", playbook.ID, err)
	}

	playbook.LastExecutedAt = nullTime(lastExecutedAt)

	return nil
}

// Delete soft deletes a playbook by setting deleted_at timestamp.
func (pr *PlaybookRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return persistence.NewPlaybookError("Delete", id, persistence.ErrPlaybookNotFound)
	}

	result, err := pr.db.ExecContext(ctx,
		"UPDATE playbooks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL",
		id, time.Now().UTC(),
	)
	if err != nil {
		return persistence.NewPlaybookError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewPlaybookError("Delete", id, err)
	}

	if rowsAffected == 0 {
		return persistence.NewPlaybookError("Delete", id, persistence.ErrPlaybookNotFound)
	}

	return nil
}

func (pr *PlaybookRepository) query(ctx context.Context, query string, args ...any) ([]*models.Playbook, error) {
	rows, err := pr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playbooks: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			pr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	playbooks := make([]*models.Playbook, 0)

	for rows.Next() {
		playbook, err := scanPlaybook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playbook: %w", err)
		}

		playbooks = append(playbooks, playbook)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playbooks: %w", err)
	}

	return playbooks, nil
}

func scanPlaybook(row scanner) (*models.Playbook, error) {
	var (
		playbook       models.Playbook
		triggerType    string
		triggerConfig  []byte
		conditions     []byte
		actions        []byte
		lastExecutedAt sql.NullTime
	)

	err := row.Scan(
		&playbook.ID,
		&playbook.UserID,
		&playbook.Name,
		&playbook.Description,
		&triggerType,
		&triggerConfig,
		&conditions,
		&actions,
		&playbook.ConfidenceThreshold,
		&playbook.RequiresApproval,
		&playbook.Enabled,
		&playbook.IsDefault,
		&playbook.ExecutionCount,
		&lastExecutedAt,
		&playbook.CreatedAt,
		&playbook.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	playbook.Trigger.Type = models.TriggerType(triggerType)
	playbook.LastExecutedAt = nullTime(lastExecutedAt)

	if err := json.Unmarshal(triggerConfig, &playbook.Trigger.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	if err := json.Unmarshal(conditions, &playbook.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}

	if err := json.Unmarshal(actions, &playbook.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &playbook, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	value := t.Time.UTC()

	return &value
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
