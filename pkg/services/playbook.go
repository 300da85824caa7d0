package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/deskflow/pkg/conditions"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

const (
	DefaultExecutionsLimit = 50
	MaxExecutionsLimit     = 200
)

// ActionValidator checks action configurations. Implemented by registry.Registry.
type ActionValidator interface {
	ValidateActionConfig(actionType string, config map[string]any) error
}

type Playbooks struct {
	persistence persistence.Persistence
	actions     ActionValidator
	validate    *validator.Validate
	now         func() time.Time
}

// NewPlaybooks creates the playbook management service.
func NewPlaybooks(persistence persistence.Persistence, actions ActionValidator) *Playbooks {
	return &Playbooks{
		persistence: persistence,
		actions:     actions,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck checks the health of the persistence layer.
func (p *Playbooks) HealthCheck(ctx context.Context) (string, bool) {
	if p.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := p.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every playbook of userID, enabled or not.
func (p *Playbooks) List(ctx context.Context, userID string) ([]*models.Playbook, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	playbooks, err := p.persistence.PlaybookRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}

	return playbooks, nil
}

func (p *Playbooks) Get(ctx context.Context, id string) (*models.Playbook, error) {
	playbook, err := p.persistence.PlaybookRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if playbook == nil {
		return nil, ErrPlaybookNotFound
	}

	return playbook, nil
}

// Create stores a new playbook for userID. Counters always start at zero.
func (p *Playbooks) Create(ctx context.Context, userID string, playbook *models.Playbook) (*models.Playbook, error) {
	if playbook == nil {
		return nil, ErrInvalidRequest
	}

	now := p.now()
	playbook.ID = ""
	playbook.UserID = strings.TrimSpace(userID)
	playbook.ExecutionCount = 0
	playbook.LastExecutedAt = nil
	playbook.CreatedAt = now
	playbook.UpdatedAt = now

	if err := p.Validate(playbook); err != nil {
		return nil, err
	}

	if err := p.persistence.PlaybookRepository().Save(ctx, playbook); err != nil {
		return nil, fmt.Errorf("failed to create playbook: %w", err)
	}

	return playbook, nil
}

// Update replaces the user-editable fields of a playbook. Ownership, counters and the
// default-template flag are kept from the stored version.
func (p *Playbooks) Update(ctx context.Context, id string, playbook *models.Playbook) (*models.Playbook, error) {
	if playbook == nil {
		return nil, ErrInvalidRequest
	}

	existing, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	playbook.ID = existing.ID
	playbook.UserID = existing.UserID
	playbook.IsDefault = existing.IsDefault
	playbook.ExecutionCount = existing.ExecutionCount
	playbook.LastExecutedAt = existing.LastExecutedAt
	playbook.CreatedAt = existing.CreatedAt
	playbook.UpdatedAt = p.now()

	if err := p.Validate(playbook); err != nil {
		return nil, err
	}

	if err := p.persistence.PlaybookRepository().Save(ctx, playbook); err != nil {
		return nil, fmt.Errorf("failed to update playbook: %w", err)
	}

	return playbook, nil
}

// SetEnabled switches a playbook on or off without touching anything else.
func (p *Playbooks) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Playbook, error) {
	playbook, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if playbook.Enabled == enabled {
		return playbook, nil
	}

	playbook.Enabled = enabled
	playbook.UpdatedAt = p.now()

	if err := p.persistence.PlaybookRepository().Save(ctx, playbook); err != nil {
		return nil, fmt.Errorf("failed to update playbook: %w", err)
	}

	return playbook, nil
}

func (p *Playbooks) Delete(ctx context.Context, id string) error {
	if _, err := p.Get(ctx, id); err != nil {
		return err
	}

	if err := p.persistence.PlaybookRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete playbook: %w", err)
	}

	return nil
}

// Executions returns the newest execution rows of a playbook.
func (p *Playbooks) Executions(ctx context.Context, playbookID string, limit int) ([]*models.PlaybookExecution, error) {
	if _, err := p.Get(ctx, playbookID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultExecutionsLimit
	}

	limit = min(limit, MaxExecutionsLimit)

	executions, err := p.persistence.ExecutionRepository().ListByPlaybook(ctx, playbookID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// Validate checks a playbook before it is stored.
func (p *Playbooks) Validate(playbook *models.Playbook) error {
	if playbook.UserID == "" {
		return ErrEmptyUserID
	}

	if err := p.validate.Struct(playbook); err != nil {
		return NewValidationError("Validate", "INVALID_PLAYBOOK", describe(err), ErrInvalidPlaybook)
	}

	if err := validateTrigger(playbook.Trigger); err != nil {
		return err
	}

	for i, condition := range playbook.Conditions {
		if !conditions.SupportedOperator(condition.Operator) {
			return NewValidationError("Validate", "INVALID_CONDITION",
				fmt.Sprintf("conditions[%d]: unsupported operator '%s'", i, condition.Operator),
				ErrInvalidCondition,
			)
		}
	}

	if p.actions == nil {
		return nil
	}

	for i, action := range playbook.Actions {
		if err := p.actions.ValidateActionConfig(action.Type, action.Config); err != nil {
			return NewValidationError("Validate", "INVALID_ACTION",
				fmt.Sprintf("actions[%d]: %v", i, err),
				ErrInvalidAction,
			)
		}
	}

	return nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func validateTrigger(trigger models.Trigger) error {
	invalid := func(message string) error {
		return NewValidationError("Validate", "INVALID_TRIGGER", message, ErrInvalidTrigger)
	}

	switch trigger.Type {
	case models.TriggerTypeShopifyEvent:
		if strings.TrimSpace(trigger.Config.Event) == "" {
			return invalid("shopify_event trigger needs config.event")
		}
	case models.TriggerTypeEmailIntent:
		if strings.TrimSpace(trigger.Config.Intent) == "" {
			return invalid("email_intent trigger needs config.intent")
		}
	case models.TriggerTypeScheduled:
		if _, err := cronParser.Parse(trigger.Config.Cron); err != nil {
			return invalid(fmt.Sprintf("scheduled trigger needs a valid config.cron: %v", err))
		}
	default:
		return invalid(fmt.Sprintf("unknown trigger type '%s'", trigger.Type))
	}

	return nil
}

func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	details := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, fmt.Sprintf("%s failed on '%s'", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return strings.Join(details, "; ")
}
