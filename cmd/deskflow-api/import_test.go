package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/persistence/file"
	"github.com/dukex/deskflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "playbooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestImportPlaybooks(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	reg := cmd.NewRegistry(slog.Default(), "")

	path := writeFile(t, `
playbooks:
  - name: High-value order
    trigger: {type: shopify_event, event: order_created}
    conditions:
      - {field: order_total, operator: ">", value: 500}
    actions:
      - type: add_tag
        config: {tags: [vip]}
`)

	created, err := importPlaybooks(t.Context(), slog.Default(), store, reg, "user-1", path)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	playbooks, err := services.NewPlaybooks(store, reg).List(t.Context(), "user-1")
	require.NoError(t, err)
	require.Len(t, playbooks, 1)
	assert.Equal(t, "High-value order", playbooks[0].Name)
	assert.Equal(t, "500", playbooks[0].Conditions[0].Value)
}

func TestImportPlaybooks_InvalidFileCreatesNothing(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	reg := cmd.NewRegistry(slog.Default(), "")

	path := writeFile(t, `
playbooks:
  - name: Valid playbook
    trigger: {type: shopify_event, event: order_created}
    actions:
      - type: add_tag
        config: {tags: [vip]}
  - name: Unknown action
    trigger: {type: shopify_event, event: order_created}
    actions:
      - type: teleport_parcel
`)

	_, err := importPlaybooks(t.Context(), slog.Default(), store, reg, "user-1", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown action")

	playbooks, err := services.NewPlaybooks(store, reg).List(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, playbooks)
}
