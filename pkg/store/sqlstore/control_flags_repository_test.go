package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlFlagsCreatedWithSafeDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	flags, err := repo.ControlFlags.Get(ctx)
	require.NoError(t, err)
	assert.False(t, flags.Paused)
	assert.False(t, flags.Killed)
	assert.True(t, flags.RehearsalMode, "first boot defaults to rehearsal mode")

	// Second read returns the same singleton row
	again, err := repo.ControlFlags.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, flags.ID, again.ID)
}

func TestControlFlagsPartialUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.ControlFlags.Get(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.ControlFlags.Update(ctx, map[string]interface{}{"paused": true}))

	flags, err := repo.ControlFlags.Get(ctx)
	require.NoError(t, err)
	assert.True(t, flags.Paused)
	assert.False(t, flags.Killed, "untouched flags keep their value")
	assert.True(t, flags.RehearsalMode)

	require.NoError(t, repo.ControlFlags.Update(ctx, map[string]interface{}{
		"paused":         false,
		"rehearsal_mode": false,
	}))
	flags, err = repo.ControlFlags.Get(ctx)
	require.NoError(t, err)
	assert.False(t, flags.Paused)
	assert.False(t, flags.RehearsalMode)
}
