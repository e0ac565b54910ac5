package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault and index status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if vaultWatcher == nil {
		return errors.New("vault watcher not configured")
	}

	status, err := vaultWatcher.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Vault:        %s\n", status.VaultPath)
	cmd.Printf("Watching:     %t\n", status.Watching)
	if status.LastSync.IsZero() {
		cmd.Println("Last sync:    never")
	} else {
		cmd.Printf("Last sync:    %s\n", status.LastSync.Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("Total chunks: %d\n", status.TotalChunks)
	return nil
}
