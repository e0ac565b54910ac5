package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	err = store.Set("vault.path", "/home/me/vault")
	require.NoError(t, err)

	val, ok := store.Get("vault.path")
	assert.True(t, ok)
	assert.Equal(t, "/home/me/vault", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("vault.path", "/home/me/vault"))
	require.NoError(t, store.Set("chunking.size", 1000))
	require.NoError(t, store.Set("search.threshold", 0.6))
	require.NoError(t, store.Set("watch.enabled", true))
	require.NoError(t, store.Set("vault.excludes", []string{".obsidian", ".trash"}))

	assert.Equal(t, "/home/me/vault", store.GetString("vault.path"))
	assert.Equal(t, 1000, store.GetInt("chunking.size"))
	assert.InDelta(t, 0.6, store.GetFloat("search.threshold"), 1e-9)
	assert.True(t, store.GetBool("watch.enabled"))
	assert.Equal(t, []string{".obsidian", ".trash"}, store.GetStringSlice("vault.excludes"))

	// Missing keys return zero values
	assert.Equal(t, "", store.GetString("nope"))
	assert.Equal(t, 0, store.GetInt("nope"))
	assert.Zero(t, store.GetFloat("nope"))
	assert.False(t, store.GetBool("nope"))
	assert.Nil(t, store.GetStringSlice("nope"))

	// Wrong types return zero values
	assert.Equal(t, "", store.GetString("chunking.size"))
	assert.Equal(t, 0, store.GetInt("vault.path"))
}

func TestConfigStore_GetFloat_WidensIntegers(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("search.threshold", 1))
	assert.InDelta(t, 1.0, store.GetFloat("search.threshold"), 1e-9)
}

func TestConfigStore_PersistsAcrossLoads(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vault.path", "/home/me/vault"))
	require.NoError(t, store.Set("chunking.overlap", 200))

	// A fresh store reads the same file back, including the int64
	// round-trip through TOML
	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "/home/me/vault", reloaded.GetString("vault.path"))
	assert.Equal(t, 200, reloaded.GetInt("chunking.overlap"))
}

func TestConfigStore_LoadFlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	raw := "[vault]\npath = \"/home/me/vault\"\n\n[chunking]\nsize = 800\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(raw), 0o600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/home/me/vault", store.GetString("vault.path"))
	assert.Equal(t, 800, store.GetInt("chunking.size"))
}

func TestConfigStore_LoadMissingFileStartsEmpty(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Load())

	_, ok := store.Get("anything")
	assert.False(t, ok)
}
