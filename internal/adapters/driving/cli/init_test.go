package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
)

func setupInitTest(t *testing.T) string {
	t.Helper()

	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	SetConfigStore(store)
	t.Cleanup(func() { configStore = nil })

	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, "note.md"), []byte("# note"), 0600))
	return vault
}

func TestInitCmd_Use(t *testing.T) {
	assert.Equal(t, "init [vault-path]", initCmd.Use)
}

func TestInitCmd_StoresVaultPath(t *testing.T) {
	vault := setupInitTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"init", vault})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Vault set to "+vault)
	assert.Equal(t, vault, configStore.GetString("vault.path"))
}

func TestInitCmd_RejectsMissingPath(t *testing.T) {
	setupInitTest(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"init", filepath.Join(t.TempDir(), "absent")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	assert.Error(t, rootCmd.Execute())
}

func TestInitCmd_RejectsFilePath(t *testing.T) {
	vault := setupInitTest(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"init", filepath.Join(vault, "note.md")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
