// Package confidence scores how safe it is to run a playbook without a human.
package confidence

import (
	"context"
	"math"

	"github.com/dukex/deskflow/pkg/models"
)

const (
	// Baseline is the score every playbook whose conditions matched starts with.
	Baseline = 0.85
	// ConditionBonus is added for playbooks with more than ConditionBonusMinimum conditions.
	ConditionBonus = 0.10
	// ConditionBonusMinimum is the condition count that must be exceeded to earn the bonus.
	ConditionBonusMinimum = 2
	// Ceiling caps the heuristic score.
	Ceiling = 0.95
)

// Estimator produces a score in [0, 1] for a playbook and an event payload.
type Estimator interface {
	Estimate(ctx context.Context, playbook *models.Playbook, data map[string]any) (float64, error)
}

// Static is the rule-based estimator: more specific playbooks earn a higher score.
type Static struct{}

// NewStatic creates the rule-based estimator.
func NewStatic() *Static {
	return &Static{}
}

// Estimate implements Estimator. It never fails.
func (Static) Estimate(_ context.Context, playbook *models.Playbook, _ map[string]any) (float64, error) {
	score := Baseline

	if len(playbook.Conditions) > ConditionBonusMinimum {
		score = math.Min(score+ConditionBonus, Ceiling)
	}

	return score, nil
}

// Func adapts a plain function to the Estimator interface.
type Func func(ctx context.Context, playbook *models.Playbook, data map[string]any) (float64, error)

// Estimate implements Estimator.
func (f Func) Estimate(ctx context.Context, playbook *models.Playbook, data map[string]any) (float64, error) {
	return f(ctx, playbook, data)
}
