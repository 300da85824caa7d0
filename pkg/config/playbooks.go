// Package config loads playbook definitions from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dukex/deskflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// DefaultConfidenceThreshold applies to playbooks that do not set one.
const DefaultConfidenceThreshold = 0.8

// ErrNoPlaybooks is returned for files without any playbook entry.
var ErrNoPlaybooks = errors.New("no playbooks defined")

// PlaybookFile is the layout of a playbooks.yaml file.
type PlaybookFile struct {
	Playbooks []PlaybookEntry `yaml:"playbooks"`
}

type PlaybookEntry struct {
	Name                string           `yaml:"name"`
	Description         string           `yaml:"description"`
	Trigger             TriggerEntry     `yaml:"trigger"`
	Conditions          []ConditionEntry `yaml:"conditions"`
	Actions             []ActionEntry    `yaml:"actions"`
	ConfidenceThreshold *float64         `yaml:"confidence_threshold"`
	RequiresApproval    bool             `yaml:"requires_approval"`
	Enabled             *bool            `yaml:"enabled"`
}

type TriggerEntry struct {
	Type   string `yaml:"type"`
	Event  string `yaml:"event"`
	Intent string `yaml:"intent"`
	Cron   string `yaml:"cron"`
}

type ConditionEntry struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

type ActionEntry struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// LoadPlaybooks reads and converts the playbooks of a YAML file. Validation is left to the playbook service.
func LoadPlaybooks(path string) ([]*models.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbooks file %s: %w", path, err)
	}

	return ParsePlaybooks(data)
}

func ParsePlaybooks(data []byte) ([]*models.Playbook, error) {
	var file PlaybookFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML playbooks: %w", err)
	}

	if len(file.Playbooks) == 0 {
		return nil, ErrNoPlaybooks
	}

	playbooks := make([]*models.Playbook, 0, len(file.Playbooks))

	for i, entry := range file.Playbooks {
		playbook, err := entry.Playbook()
		if err != nil {
			return nil, fmt.Errorf("playbook %d (%s): %w", i, entry.Name, err)
		}

		playbooks = append(playbooks, playbook)
	}

	return playbooks, nil
}

// Playbook converts the entry, applying the same defaults as the HTTP API.
func (e PlaybookEntry) Playbook() (*models.Playbook, error) {
	threshold := DefaultConfidenceThreshold
	if e.ConfidenceThreshold != nil {
		threshold = *e.ConfidenceThreshold
	}

	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	conditions := make([]models.Condition, 0, len(e.Conditions))

	for _, c := range e.Conditions {
		value, err := scalar(c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition on %s: %w", c.Field, err)
		}

		conditions = append(conditions, models.Condition{
			Field:    c.Field,
			Operator: models.Operator(c.Operator),
			Value:    value,
		})
	}

	actions := make([]models.ActionItem, 0, len(e.Actions))
	for _, a := range e.Actions {
		actions = append(actions, models.ActionItem{Type: a.Type, Config: a.Config})
	}

	return &models.Playbook{
		Name:        e.Name,
		Description: e.Description,
		Trigger: models.Trigger{
			Type: models.TriggerType(e.Trigger.Type),
			Config: models.TriggerConfig{
				Event:  e.Trigger.Event,
				Intent: e.Trigger.Intent,
				Cron:   e.Trigger.Cron,
			},
		},
		Conditions:          conditions,
		Actions:             actions,
		ConfidenceThreshold: threshold,
		RequiresApproval:    e.RequiresApproval,
		Enabled:             enabled,
	}, nil
}

// scalar keeps the textual form of a YAML scalar, like condition values sent as JSON.
func scalar(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case bool:
		return strconv.FormatBool(value), nil
	case int:
		return strconv.Itoa(value), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("condition value must be a scalar, got %T", v)
	}
}
