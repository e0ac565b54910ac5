package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

func TestCountCmd_Use(t *testing.T) {
	assert.Equal(t, "count", countCmd.Use)
}

func TestCountCmd_PrintsCount(t *testing.T) {
	query, _, cleanup := setupTestServices()
	defer cleanup()

	query.results = []domain.SearchResult{
		{ChunkID: "a.md#chunk_0"},
		{ChunkID: "a.md#chunk_1"},
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"count"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "2\n", buf.String())
}

func TestCountCmd_NoService(t *testing.T) {
	queryService = nil
	vaultWatcher = nil

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"count"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	assert.Error(t, rootCmd.Execute())
}
