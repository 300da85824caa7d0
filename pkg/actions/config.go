// Package actions holds helpers shared by the built-in action kinds.
package actions

import (
	"errors"
	"math"
	"strings"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/google/uuid"
)

// ErrMissingTarget is returned when neither the configuration nor the trigger data names the record to act on.
var ErrMissingTarget = errors.New("missing action target")

// String returns config[key] when it is a non-empty string.
func String(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return strings.TrimSpace(value)
}

// StringOr returns config[key] or fallback when it is absent or empty.
func StringOr(config map[string]any, key, fallback string) string {
	if value := String(config, key); value != "" {
		return value
	}

	return fallback
}

// Number reads a numeric configuration value. Strings are coerced the same way conditions coerce them.
func Number(config map[string]any, key string) (float64, bool) {
	raw, exists := config[key]
	if !exists || raw == nil {
		return 0, false
	}

	n := models.ValueOf(raw).Number()
	if math.IsNaN(n) {
		return 0, false
	}

	return n, true
}

// Bool reads a boolean configuration value.
func Bool(config map[string]any, key string) bool {
	value, _ := config[key].(bool)

	return value
}

// StringSlice reads a list of strings, accepting a single comma separated string as well.
func StringSlice(config map[string]any, key string) []string {
	var raw []string

	switch value := config[key].(type) {
	case []string:
		raw = value
	case []any:
		for _, item := range value {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(value, ",")
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// FirstString returns the first path in data that resolves to a non-empty scalar.
func FirstString(data map[string]any, paths ...string) string {
	for _, path := range paths {
		value, ok := models.Lookup(data, path)
		if !ok {
			continue
		}

		switch value.Kind() {
		case models.KindString, models.KindNumber, models.KindBool:
			if s := value.String(); s != "" {
				return s
			}
		default:
		}
	}

	return ""
}

// FirstNumber returns the first path in data that resolves to a number.
func FirstNumber(data map[string]any, paths ...string) (float64, bool) {
	for _, path := range paths {
		value, ok := models.Lookup(data, path)
		if !ok {
			continue
		}

		if value.Kind() != models.KindNumber && value.Kind() != models.KindString {
			continue
		}

		if n := value.Number(); !math.IsNaN(n) {
			return n, true
		}
	}

	return 0, false
}

// Reference builds a short external reference such as "rf_1a2b3c4d5e6f".
func Reference(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	return prefix + "_" + id[:12]
}

// OrderID resolves the order a trigger refers to.
func OrderID(config, data map[string]any) string {
	if id := String(config, "order_id"); id != "" {
		return id
	}

	return FirstString(data, "order_id", "order.id", "id", "order.name")
}

// CustomerEmail resolves the customer e-mail address a trigger refers to.
func CustomerEmail(data map[string]any) string {
	return FirstString(data, "customer.email", "email", "order.email", "from")
}
