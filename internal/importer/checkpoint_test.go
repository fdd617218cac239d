package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "import.checkpoint.json")
	store := NewCheckpointStore(path, true)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save("/data/trades.jsonl", 42))
	cp, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/data/trades.jsonl", cp.Source)
	assert.Equal(t, 42, cp.LastLine)
	assert.NotEmpty(t, cp.UpdatedAt)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCheckpointStoreDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.checkpoint.json")
	store := NewCheckpointStore(path, false)

	require.NoError(t, store.Save("/data/trades.jsonl", 5))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, _, err := NewCheckpointStore(path, true).Load()
	assert.Error(t, err)
}

func TestCheckpointCovers(t *testing.T) {
	cp := Checkpoint{Source: "/data/a.jsonl", LastLine: 10}
	assert.True(t, cp.Covers("/data/a.jsonl", 10))
	assert.False(t, cp.Covers("/data/a.jsonl", 11))
	assert.False(t, cp.Covers("/data/b.jsonl", 1))
}
