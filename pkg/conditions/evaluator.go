// Package conditions evaluates playbook conditions against trigger payloads.
package conditions

import (
	"strings"

	"github.com/dukex/deskflow/pkg/models"
)

// Evaluate reports whether every condition holds for data. An empty list matches.
func Evaluate(conditions []models.Condition, data map[string]any) bool {
	for _, condition := range conditions {
		if !Check(condition, data) {
			return false
		}
	}

	return true
}

// Check evaluates a single condition. Unknown operators never match.
func Check(condition models.Condition, data map[string]any) bool {
	field, _ := models.Lookup(data, condition.Field)
	expected := models.ValueOf(condition.Value)

	switch condition.Operator {
	case models.OperatorEquals:
		return field.String() == expected.String()
	case models.OperatorNotEquals:
		return field.String() != expected.String()
	case models.OperatorGreaterThan:
		// NaN on either side compares false
		return field.Number() > expected.Number()
	case models.OperatorLessThan:
		return field.Number() < expected.Number()
	case models.OperatorContains:
		return containsFold(field.String(), expected.String())
	case models.OperatorNotContains:
		return !containsFold(field.String(), expected.String())
	default:
		return false
	}
}

// SupportedOperator reports whether op is understood by Check.
func SupportedOperator(op models.Operator) bool {
	switch op {
	case models.OperatorEquals, models.OperatorNotEquals,
		models.OperatorGreaterThan, models.OperatorLessThan,
		models.OperatorContains, models.OperatorNotContains:
		return true
	default:
		return false
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
