package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/deskflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock action for testing
type mockAction struct {
	config map[string]any
}

func (m *mockAction) Execute(_ context.Context, _ protocol.ActionContext, _ *slog.Logger) (map[string]any, error) {
	return map[string]any{"success": true, "config": m.config}, nil
}

type mockActionFactory struct {
	id     string
	schema map[string]any
}

func (f *mockActionFactory) ID() string {
	return f.id
}

func (f *mockActionFactory) Schema() map[string]any {
	return f.schema
}

func (f *mockActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return &mockAction{config: config}, nil
}

func tagSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
			},
		},
		"required": []any{"tags"},
	}
}

func TestRegistry_RegisterAndCreateAction(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterAction(&mockActionFactory{id: "mock"})

	assert.True(t, registry.HasAction("mock"))
	assert.False(t, registry.HasAction("other"))

	action, err := registry.CreateAction("mock", nil)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), protocol.ActionContext{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, map[string]any{}, result["config"])
}

func TestRegistry_CreateUnknownAction(t *testing.T) {
	registry := NewRegistry(slog.Default())

	_, err := registry.CreateAction("missing", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActionNotRegistered)
}

func TestRegistry_ActionTypesSorted(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterAction(&mockActionFactory{id: "send_email"})
	registry.RegisterAction(&mockActionFactory{id: "add_tag"})
	registry.RegisterAction(&mockActionFactory{id: "auto_refund"})

	assert.Equal(t, []string{"add_tag", "auto_refund", "send_email"}, registry.ActionTypes())
}

func TestRegistry_ValidateActionConfig(t *testing.T) {
	registry := NewRegistry(slog.Default())
	registry.RegisterAction(&mockActionFactory{id: "add_tag", schema: tagSchema()})
	registry.RegisterAction(&mockActionFactory{id: "schemaless"})

	tests := []struct {
		name       string
		actionType string
		config     map[string]any
		wantErr    error
	}{
		{
			name:       "valid configuration",
			actionType: "add_tag",
			config:     map[string]any{"tags": []any{"vip"}},
		},
		{
			name:       "missing required property",
			actionType: "add_tag",
			config:     map[string]any{},
			wantErr:    ErrInvalidActionConfig,
		},
		{
			name:       "wrong property type",
			actionType: "add_tag",
			config:     map[string]any{"tags": "vip"},
			wantErr:    ErrInvalidActionConfig,
		},
		{
			name:       "nil configuration is an empty object",
			actionType: "add_tag",
			config:     nil,
			wantErr:    ErrInvalidActionConfig,
		},
		{
			name:       "factory without schema accepts anything",
			actionType: "schemaless",
			config:     map[string]any{"anything": 1},
		},
		{
			name:       "unknown action type",
			actionType: "nope",
			config:     map[string]any{},
			wantErr:    ErrActionNotRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.ValidateActionConfig(tt.actionType, tt.config)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_HealthCheck(t *testing.T) {
	registry := NewRegistry(slog.Default())

	_, ok := registry.HealthCheck()
	assert.False(t, ok)

	registry.RegisterAction(&mockActionFactory{id: "mock"})

	message, ok := registry.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "1 action types registered", message)
}

func TestRegistry_LoadActionPlugins_MissingDirectory(t *testing.T) {
	registry := NewRegistry(slog.Default())

	plugins, err := registry.LoadActionPlugins(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, plugins)
}
