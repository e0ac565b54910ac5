package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [vault-path]",
	Short: "Point recall at a vault",
	Long: `Stores the vault path in the configuration file. Subsequent sync,
watch, search and status commands operate on this vault.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("vault path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path %s is not a directory", path)
	}

	if err := configStore.Set("vault.path", path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	cmd.Printf("Vault set to %s\n", path)
	cmd.Printf("Config written to %s\n", configStore.Path())
	return nil
}
