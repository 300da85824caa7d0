// Package events defines the messages exchanged between deskflow services.
package events

import (
	"time"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the single Kafka topic all deskflow events travel on.
const Topic = "deskflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// TriggerReceivedEvent asks a worker to run a trigger through the orchestrator.
	TriggerReceivedEvent EventType = "trigger.received"

	// PlaybookExecutionRecordedEvent announces a new execution log row.
	PlaybookExecutionRecordedEvent EventType = "playbook.execution.recorded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(eventType EventType, userID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

type TriggerReceived struct {
	BaseEvent

	Trigger models.TriggerEvent `json:"trigger"`
}

func NewTriggerReceived(trigger models.TriggerEvent) TriggerReceived {
	return TriggerReceived{
		BaseEvent: newBaseEvent(TriggerReceivedEvent, trigger.UserID),
		Trigger:   trigger,
	}
}

func (t TriggerReceived) GetType() EventType {
	return TriggerReceivedEvent
}

type PlaybookExecutionRecorded struct {
	BaseEvent

	PlaybookID          string                 `json:"playbook_id"`
	ExecutionID         string                 `json:"execution_id"`
	Status              models.ExecutionStatus `json:"status"`
	Confidence          *float64               `json:"confidence,omitempty"`
	Reason              string                 `json:"reason,omitempty"`
	Error               string                 `json:"error,omitempty"`
	ApprovedExecutionID string                 `json:"approved_execution_id,omitempty"`
}

func NewPlaybookExecutionRecorded(execution *models.PlaybookExecution) PlaybookExecutionRecorded {
	return PlaybookExecutionRecorded{
		BaseEvent:           newBaseEvent(PlaybookExecutionRecordedEvent, execution.UserID),
		PlaybookID:          execution.PlaybookID,
		ExecutionID:         execution.ID,
		Status:              execution.Status,
		Confidence:          execution.Confidence,
		Reason:              execution.Reason,
		Error:               execution.Error,
		ApprovedExecutionID: execution.ApprovedExecutionID,
	}
}

func (p PlaybookExecutionRecorded) GetType() EventType {
	return PlaybookExecutionRecordedEvent
}
