package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/models"
	"github.com/dukex/deskflow/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	registry := cmd.NewRegistry(slog.Default(), "")
	orchestrator, _ := cmd.NewOrchestrator(t.Context(), slog.Default(), store, registry, nil, cmd.EngineConfig{})

	return NewAPI(slog.Default(), store, registry, orchestrator, nil).App()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Deskflow API", string(readBody(t, resp)))
}

func TestAPI_Probes(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "OK", string(readBody(t, resp)), path)
	}
}

func TestAPI_AsyncTriggerWithoutBus(t *testing.T) {
	app := setupTestApp(t)

	payload, err := json.Marshal(map[string]any{
		"type":   "shopify_event",
		"event":  "order_created",
		"userId": "user-1",
		"data":   map[string]any{"order_total": 600},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/triggers/async", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	readBody(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPI_TriggerRunsSeededPlaybook(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/users/user-1/playbooks/defaults", nil))
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/user-1/playbooks", nil))
	require.NoError(t, err)

	var playbooks []models.Playbook
	require.NoError(t, json.Unmarshal(readBody(t, resp), &playbooks))
	require.Len(t, playbooks, 4)

	for _, playbook := range playbooks {
		assert.False(t, playbook.Enabled, playbook.Name)
		assert.True(t, playbook.IsDefault, playbook.Name)
	}

	payload, err := json.Marshal(map[string]any{
		"type":   "shopify_event",
		"event":  "order_created",
		"userId": "user-1",
		"data":   map[string]any{"order_total": 600},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/triggers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response models.ExecutionResponse
	require.NoError(t, json.Unmarshal(readBody(t, resp), &response))
	assert.Equal(t, 0, response.Matched)
}
