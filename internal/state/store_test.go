package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/tabtrace/internal/pause"
)

func TestStoreMissingKey(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	value, found, err := store.Bool(context.Background(), "paused")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, value)
}

func TestStoreRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	store, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.SetBool(context.Background(), "paused", true))

	value, found, err := store.Bool(context.Background(), "paused")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(stateFileMode), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "paused = true")
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	err = store.SetBool(context.Background(), "  ", true)
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, _, err = store.Bool(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestStoreRejectsNonBoolValue(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("paused = \"yes\"\n"), 0o600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, _, err = store.Bool(context.Background(), "paused")
	assert.ErrorContains(t, err, "not bool")
}

func TestStoreCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("paused = = true"), 0o600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, _, err = store.Bool(context.Background(), "paused")
	assert.ErrorContains(t, err, "decode state file")
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store, err := NewStore(filepath.Join(t.TempDir(), "state.toml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.SetBool(ctx, "paused", true), context.Canceled)
}

func TestPausedFlagSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.toml")
	store, err := NewStore(path)
	require.NoError(t, err)

	controller := pause.NewController(context.Background(), store)
	controller.Pause(context.Background())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	restarted := pause.NewController(context.Background(), reopened)
	assert.True(t, restarted.Paused())
	assert.False(t, restarted.Status().Tracking)
}
