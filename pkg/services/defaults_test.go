package services_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/deskflow/pkg/cmd"
	"github.com/dukex/deskflow/pkg/persistence/file"
	"github.com/dukex/deskflow/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybooks_SeedDefaults(t *testing.T) {
	service := services.NewPlaybooks(file.NewPersistence(t.TempDir()), cmd.NewRegistry(slog.Default(), ""))
	ctx := t.Context()

	created, err := service.SeedDefaults(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, created, len(services.DefaultPlaybooks()))

	for _, playbook := range created {
		assert.True(t, playbook.IsDefault, playbook.Name)
		assert.False(t, playbook.Enabled, playbook.Name)
		assert.Equal(t, "user-1", playbook.UserID)
	}

	again, err := service.SeedDefaults(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, again)

	playbooks, err := service.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, playbooks, len(services.DefaultPlaybooks()))

	_, err = service.SeedDefaults(ctx, "")
	assert.ErrorIs(t, err, services.ErrEmptyUserID)
}
