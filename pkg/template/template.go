// Package template provides templating for action configuration such as email bodies.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/protocol"
)

// RenderWithContext renders input against the trigger payload of an action.
// Templates see .data, .user_id, .shop_domain and .playbook_id.
func RenderWithContext(input string, actionCtx protocol.ActionContext) (any, error) {
	return Render(input, contextData(actionCtx))
}

// RenderStringWithContext renders input and always returns the text produced.
func RenderStringWithContext(input string, actionCtx protocol.ActionContext) (string, error) {
	return RenderString(input, contextData(actionCtx))
}

func contextData(actionCtx protocol.ActionContext) map[string]any {
	return map[string]any{
		"data":        actionCtx.Data,
		"user_id":     actionCtx.UserID,
		"shop_domain": actionCtx.ShopDomain,
		"playbook_id": actionCtx.PlaybookID,
	}
}

// Render executes the template and converts JSON, number and boolean output to typed values.
func Render(templateStr string, data any) (any, error) {
	result, err := RenderString(templateStr, data)
	if err != nil {
		return nil, err
	}

	// Try to parse as JSON if it looks like JSON
	result = strings.TrimSpace(result)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// RenderString executes the template and returns the raw text.
func RenderString(templateStr string, data any) (string, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.
		New("action").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"field": func(data map[string]any, path string) string {
				value, _ := models.Lookup(data, path)

				return value.String()
			},
			"default": func(fallback, value any) any {
				if value == nil || value == "" {
					return fallback
				}

				return value
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}
