// Package web provides HTTP request and response types for the playbook API.
package web

import "github.com/dukex/deskflow/pkg/models"

// TriggerRequest is the trigger submission body. Field names follow the public camelCase trigger API.
type TriggerRequest struct {
	Type           models.TriggerType `json:"type"                     validate:"required,oneof=shopify_event email_intent scheduled"`
	Event          string             `json:"event,omitempty"`
	Intent         string             `json:"intent,omitempty"`
	Schedule       string             `json:"schedule,omitempty"`
	Data           map[string]any     `json:"data"`
	UserID         string             `json:"userId"`
	ShopDomain     string             `json:"shopDomain,omitempty"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// TriggerEvent converts the request into the engine's event.
func (r TriggerRequest) TriggerEvent() models.TriggerEvent {
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}

	return models.TriggerEvent{
		Type:           r.Type,
		Event:          r.Event,
		Intent:         r.Intent,
		Schedule:       r.Schedule,
		Data:           data,
		UserID:         r.UserID,
		ShopDomain:     r.ShopDomain,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// AsyncTriggerResponse acknowledges a trigger queued on the event bus.
type AsyncTriggerResponse struct {
	Status  string `json:"status"`
	EventID string `json:"eventId"`
}

// ApproveRequest names the user approving a pending execution.
type ApproveRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CreatePlaybookRequest represents the request body for creating a playbook.
type CreatePlaybookRequest struct {
	Name                string              `json:"name"                           validate:"required,min=3"`
	Description         string              `json:"description"`
	Trigger             models.Trigger      `json:"trigger"`
	Conditions          []models.Condition  `json:"conditions"`
	Actions             []models.ActionItem `json:"actions"                        validate:"required,min=1"`
	ConfidenceThreshold *float64            `json:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	RequiresApproval    bool                `json:"requires_approval"`
	Enabled             *bool               `json:"enabled,omitempty"`
}

// DefaultConfidenceThreshold applies when a playbook is created without one.
const DefaultConfidenceThreshold = 0.8

func (r CreatePlaybookRequest) Playbook() *models.Playbook {
	threshold := DefaultConfidenceThreshold
	if r.ConfidenceThreshold != nil {
		threshold = *r.ConfidenceThreshold
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &models.Playbook{
		Name:                r.Name,
		Description:         r.Description,
		Trigger:             r.Trigger,
		Conditions:          r.Conditions,
		Actions:             r.Actions,
		ConfidenceThreshold: threshold,
		RequiresApproval:    r.RequiresApproval,
		Enabled:             enabled,
	}
}

// UpdatePlaybookRequest represents the request body for updating an existing playbook.
// All fields are optional to support partial updates.
type UpdatePlaybookRequest struct {
	Name                *string              `json:"name,omitempty"                 validate:"omitempty,min=3"`
	Description         *string              `json:"description,omitempty"`
	Trigger             *models.Trigger      `json:"trigger,omitempty"`
	Conditions          *[]models.Condition  `json:"conditions,omitempty"`
	Actions             *[]models.ActionItem `json:"actions,omitempty"`
	ConfidenceThreshold *float64             `json:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	RequiresApproval    *bool                `json:"requires_approval,omitempty"`
	Enabled             *bool                `json:"enabled,omitempty"`
}

// Apply returns a copy of playbook with the requested changes.
func (r UpdatePlaybookRequest) Apply(playbook models.Playbook) *models.Playbook {
	if r.Name != nil {
		playbook.Name = *r.Name
	}

	if r.Description != nil {
		playbook.Description = *r.Description
	}

	if r.Trigger != nil {
		playbook.Trigger = *r.Trigger
	}

	if r.Conditions != nil {
		playbook.Conditions = *r.Conditions
	}

	if r.Actions != nil {
		playbook.Actions = *r.Actions
	}

	if r.ConfidenceThreshold != nil {
		playbook.ConfidenceThreshold = *r.ConfidenceThreshold
	}

	if r.RequiresApproval != nil {
		playbook.RequiresApproval = *r.RequiresApproval
	}

	if r.Enabled != nil {
		playbook.Enabled = *r.Enabled
	}

	return &playbook
}

// ExecutionsResponse lists the execution log of a playbook.
type ExecutionsResponse struct {
	Executions []*models.PlaybookExecution `json:"executions"`
	Limit      int                         `json:"limit"`
}
