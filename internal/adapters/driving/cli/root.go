// Package cli implements the recall command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// Services injected by the composition root before Execute.
var (
	queryService driving.QueryService
	vaultWatcher driving.VaultWatcher
	configStore  driven.ConfigStore
)

var (
	version = "dev"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Semantic search over a personal markdown vault",
	Long: `recall indexes a local markdown vault into a vector index and serves
similarity queries over it. Point it at a vault, sync, then search.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the driving services. Must be called before Execute.
func SetServices(query driving.QueryService, watcher driving.VaultWatcher) {
	queryService = query
	vaultWatcher = watcher
}

// SetConfigStore injects the configuration store used by init.
func SetConfigStore(store driven.ConfigStore) {
	configStore = store
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
