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

const executionColumns = `
	id, playbook_id, user_id, status, confidence, reason, trigger_data, result, error,
	approved_execution_id, created_at`

// ExecutionRepository handles the execution log.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Record inserts the row and bumps the playbook counters in one transaction.
func (er *ExecutionRepository) Record(ctx context.Context, execution *models.PlaybookExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	if execution.TriggerData == nil {
		execution.TriggerData = make(map[string]any)
	}

	triggerData, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	var result any
	if execution.Result != nil {
		encoded, err := json.Marshal(execution.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		result = encoded
	}

	tx, err := er.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewExecutionError("Record", execution.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playbook_executions (
			id, playbook_id, user_id, status, confidence, reason, trigger_data, result, error,
			approved_execution_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		execution.ID,
		execution.PlaybookID,
		execution.UserID,
		string(execution.Status),
		execution.Confidence,
		nullString(execution.Reason),
		triggerData,
		result,
		nullString(execution.Error),
		nullString(execution.ApprovedExecutionID),
		execution.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()

		if isUniqueViolation(err) {
			return persistence.NewExecutionError("Record", execution.ID, persistence.ErrExecutionConflict)
		}

		return persistence.NewExecutionError("Record", execution.ID, err)
	}

	if execution.Status == models.ExecutionStatusExecuted {
		update, err := tx.ExecContext(ctx, `
			UPDATE playbooks
			SET execution_count = execution_count + 1, last_executed_at = $2
			WHERE id = $1 AND deleted_at IS NULL
		`, execution.PlaybookID, execution.CreatedAt)
		if err != nil {
			_ = tx.Rollback()

			return persistence.NewPlaybookError("Record", execution.PlaybookID, err)
		}

		if rowsAffected, err := update.RowsAffected(); err != nil || rowsAffected == 0 {
			_ = tx.Rollback()

			return persistence.NewPlaybookError("Record", execution.PlaybookID, persistence.ErrPlaybookNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewExecutionError("Record", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.PlaybookExecution, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	row := er.db.QueryRowContext(ctx, `SELECT`+executionColumns+` FROM playbook_executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (er *ExecutionRepository) ListByPlaybook(ctx context.Context, playbookID string, limit int) ([]*models.PlaybookExecution, error) {
	if uuid.Validate(playbookID) != nil {
		return []*models.PlaybookExecution{}, nil
	}

	query := `SELECT` + executionColumns + `
		FROM playbook_executions
		WHERE playbook_id = $1
		ORDER BY created_at DESC, id DESC`

	args := []any{playbookID}

	if limit > 0 {
		query += " LIMIT $2"

		args = append(args, limit)
	}

	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.PlaybookExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (er *ExecutionRepository) FindApproval(ctx context.Context, pendingExecutionID string) (*models.PlaybookExecution, error) {
	if uuid.Validate(pendingExecutionID) != nil {
		return nil, persistence.NewExecutionError("FindApproval", pendingExecutionID, persistence.ErrExecutionNotFound)
	}

	row := er.db.QueryRowContext(ctx,
		`SELECT`+executionColumns+` FROM playbook_executions WHERE approved_execution_id = $1`,
		pendingExecutionID,
	)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("FindApproval", pendingExecutionID, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("FindApproval", pendingExecutionID, err)
	}

	return execution, nil
}

func scanExecution(row scanner) (*models.PlaybookExecution, error) {
	var (
		execution           models.PlaybookExecution
		status              string
		confidence          sql.NullFloat64
		reason              sql.NullString
		triggerData         []byte
		result              []byte
		errorMessage        sql.NullString
		approvedExecutionID sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.PlaybookID,
		&execution.UserID,
		&status,
		&confidence,
		&reason,
		&triggerData,
		&result,
		&errorMessage,
		&approvedExecutionID,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.Reason = reason.String
	execution.Error = errorMessage.String
	execution.ApprovedExecutionID = approvedExecutionID.String
	execution.CreatedAt = execution.CreatedAt.UTC()

	if confidence.Valid {
		value := confidence.Float64
		execution.Confidence = &value
	}

	if err := json.Unmarshal(triggerData, &execution.TriggerData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
	}

	if len(result) > 0 {
		if err := json.Unmarshal(result, &execution.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return &execution, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
