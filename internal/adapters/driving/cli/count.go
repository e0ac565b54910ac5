package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed chunks",
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured; run 'recall init' first")
	}

	count, err := queryService.Count(context.Background())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	cmd.Println(count)
	return nil
}
