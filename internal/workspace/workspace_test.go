package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeCreatesLayout(t *testing.T) {
	dataDir := t.TempDir()

	require.NoError(t, Initialize(dataDir))

	for _, dir := range GetRequiredDirectories() {
		info, err := os.Stat(filepath.Join(dataDir, dir))
		require.NoError(t, err, dir)
		require.True(t, info.IsDir(), dir)
		require.Equal(t, os.FileMode(0700), info.Mode().Perm(), dir)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	dataDir := t.TempDir()

	require.NoError(t, Initialize(dataDir))
	require.NoError(t, Initialize(dataDir))
}

func TestIsInitialized(t *testing.T) {
	dataDir := t.TempDir()

	ok, err := IsInitialized(dataDir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, Initialize(dataDir))

	ok, err = IsInitialized(dataDir)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsInitializedFileInPlaceOfDir(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, Initialize(dataDir))

	tasksDir := filepath.Join(dataDir, "tasks")
	require.NoError(t, os.RemoveAll(tasksDir))
	require.NoError(t, os.WriteFile(tasksDir, []byte("not a dir"), 0600))

	ok, err := IsInitialized(dataDir)
	require.NoError(t, err)
	require.False(t, ok)
}
