package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	searchLimit     int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the vault by meaning",
	Long: `Embeds the query and returns the most similar indexed chunks,
ranked by cosine similarity. Results below the threshold are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0.6, "minimum similarity (0..1)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if queryService == nil {
		return errors.New("query service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		Limit:               searchLimit,
		SimilarityThreshold: searchThreshold,
	}

	results, err := queryService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Title (Score) / Note path / Preview
		title, _ := results[i].Metadata["title"].(string)
		if title == "" {
			title = results[i].ChunkID
		}

		preview, _ := results[i].Metadata["preview"].(string)
		if preview == "" {
			preview = domain.Preview(results[i].Content)
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Similarity)
		if parent, ok := results[i].Metadata["parent_source_id"].(string); ok && parent != "" {
			cmd.Printf("      Note: %s\n", parent)
		}
		if preview != "" {
			cmd.Printf("      %s\n", preview)
		}
		cmd.Println()
	}

	return nil
}
