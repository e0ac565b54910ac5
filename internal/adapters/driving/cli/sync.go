package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the index from the vault",
	Long: `Clears the index and re-indexes every document in the vault.
Documents that fail to parse are skipped and reported; the sync
continues past them.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if vaultWatcher == nil {
		return errors.New("vault watcher not configured")
	}

	ctx := context.Background()

	if err := vaultWatcher.Initialize(ctx); err != nil {
		return fmt.Errorf("vault validation failed: %w", err)
	}

	cmd.Println("Synchronising vault...")

	report, err := vaultWatcher.FullSync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Indexed %d documents (%d chunks) in %s.\n",
		report.Documents, report.Chunks, report.Duration.Round(time.Millisecond))

	if len(report.Errors) > 0 {
		cmd.Printf("%d documents skipped:\n", len(report.Errors))
		for _, docErr := range report.Errors {
			cmd.Printf("  - %v\n", docErr)
		}
	}

	return nil
}
