package models

import "time"

// ExecutionStatus is the recorded outcome of evaluating one playbook for one trigger.
type ExecutionStatus string

const (
	ExecutionStatusExecuted ExecutionStatus = "executed"
	ExecutionStatusPending  ExecutionStatus = "pending"
	ExecutionStatusSkipped  ExecutionStatus = "skipped"
	ExecutionStatusFailed   ExecutionStatus = "failed"
)

// PlaybookExecution is an append-only audit entry. Rows are never updated after insert.
type PlaybookExecution struct {
	ID          string          `json:"id"`
	PlaybookID  string          `json:"playbook_id"`
	UserID      string          `json:"user_id"`
	Status      ExecutionStatus `json:"status"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	TriggerData map[string]any  `json:"trigger_data"`
	Result      []ActionOutcome `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`

	// ApprovedExecutionID links an executed row to the pending row it approved.
	ApprovedExecutionID string    `json:"approved_execution_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// ActionOutcome is the per-action entry of an executed playbook.
// Exactly one of Result or Error is set.
type ActionOutcome struct {
	Action string         `json:"action"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ResultStatus is the status reported to callers of the orchestrator.
type ResultStatus string

const (
	ResultStatusExecuted        ResultStatus = "executed"
	ResultStatusPendingApproval ResultStatus = "pending_approval"
	ResultStatusSkipped         ResultStatus = "skipped"
	ResultStatusFailed          ResultStatus = "failed"
)

// ExecutionResponse aggregates the outcome of one trigger dispatch.
type ExecutionResponse struct {
	Matched int              `json:"matched"`
	Results []PlaybookResult `json:"results"`
}

// PlaybookResult echoes the recorded outcome for one matching playbook.
// Its JSON form follows the camelCase trigger API.
type PlaybookResult struct {
	PlaybookID  string          `json:"playbookId"`
	ExecutionID string          `json:"executionId,omitempty"`
	Status      ResultStatus    `json:"status"`
	Confidence  *float64        `json:"confidence,omitempty"`
	Result      []ActionOutcome `json:"result,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NewPlaybookResult builds the caller-facing view of a recorded execution.
func NewPlaybookResult(execution *PlaybookExecution) PlaybookResult {
	result := PlaybookResult{
		PlaybookID:  execution.PlaybookID,
		ExecutionID: execution.ID,
		Confidence:  execution.Confidence,
		Result:      execution.Result,
		Reason:      execution.Reason,
		Error:       execution.Error,
	}

	switch execution.Status {
	case ExecutionStatusExecuted:
		result.Status = ResultStatusExecuted
	case ExecutionStatusPending:
		result.Status = ResultStatusPendingApproval
	case ExecutionStatusSkipped:
		result.Status = ResultStatusSkipped
	default:
		result.Status = ResultStatusFailed
	}

	return result
}
