// Package models defines the core domain models for playbook-based support automation
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TriggerType identifies the source of events a playbook reacts to.
type TriggerType string

const (
	TriggerTypeShopifyEvent TriggerType = "shopify_event"
	TriggerTypeEmailIntent  TriggerType = "email_intent"
	TriggerTypeScheduled    TriggerType = "scheduled"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTypeShopifyEvent, TriggerTypeEmailIntent, TriggerTypeScheduled:
		return true
	default:
		return false
	}
}

// Operator is a comparison applied by a playbook condition.
type Operator string

const (
	OperatorEquals      Operator = "=="
	OperatorNotEquals   Operator = "!="
	OperatorGreaterThan Operator = ">"
	OperatorLessThan    Operator = "<"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
)

// Playbook is a user-defined automation rule: trigger, conditions and actions.
type Playbook struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"              validate:"required"`
	Name                string       `json:"name"                 validate:"required,min=3"`
	Description         string       `json:"description"`
	Trigger             Trigger      `json:"trigger"`
	Conditions          []Condition  `json:"conditions"           validate:"dive"`
	Actions             []ActionItem `json:"actions"              validate:"min=1,dive"`
	ConfidenceThreshold float64      `json:"confidence_threshold" validate:"gte=0,lte=1"`
	RequiresApproval    bool         `json:"requires_approval"`
	Enabled             bool         `json:"enabled"`
	IsDefault           bool         `json:"is_default"`
	ExecutionCount      int64        `json:"execution_count"`
	LastExecutedAt      *time.Time   `json:"last_executed_at,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Trigger is the tagged descriptor of what starts a playbook.
type Trigger struct {
	Type   TriggerType   `json:"type"`
	Config TriggerConfig `json:"config"`
}

// TriggerConfig holds the type-specific sub-match of a trigger.
type TriggerConfig struct {
	Event  string `json:"event,omitempty"`
	Intent string `json:"intent,omitempty"`
	Cron   string `json:"cron,omitempty"`
}

// Condition compares a dotted-path field of the event payload against a value.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    string   `json:"value"`
}

// UnmarshalJSON accepts numbers and booleans for value and keeps their textual form.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Field    string          `json:"field"`
		Operator Operator        `json:"operator"`
		Value    json.RawMessage `json:"value"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Field = raw.Field
	c.Operator = raw.Operator
	c.Value = ""

	if len(raw.Value) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw.Value, &v); err != nil {
		return fmt.Errorf("invalid condition value: %w", err)
	}

	switch value := v.(type) {
	case nil:
		c.Value = "null"
	case string:
		c.Value = value
	case bool:
		c.Value = strconv.FormatBool(value)
	case float64:
		c.Value = formatNumber(value)
	default:
		return fmt.Errorf("condition value must be a scalar, got %T", v)
	}

	return nil
}

// ActionItem is one typed side effect of a playbook.
type ActionItem struct {
	Type   string         `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
}
