package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and keep the index current",
	Long: `Performs a full sync, then watches the vault for file changes and
applies them to the index incrementally. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if vaultWatcher == nil {
		return errors.New("vault watcher not configured")
	}

	ctx := context.Background()

	if err := vaultWatcher.Initialize(ctx); err != nil {
		return fmt.Errorf("vault validation failed: %w", err)
	}

	if err := vaultWatcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	status, err := vaultWatcher.Status(ctx)
	if err == nil {
		cmd.Printf("Watching %s (%d chunks indexed). Press Ctrl+C to stop.\n",
			status.VaultPath, status.TotalChunks)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cmd.Println("\nStopping...")
	return vaultWatcher.Stop()
}
