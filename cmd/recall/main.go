// Command recall indexes a personal markdown vault into a vector index
// and serves similarity queries over it.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/recall-cli/internal/adapters/driven/index/sqlite"
	"github.com/custodia-labs/recall-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driven"
	"github.com/custodia-labs/recall-cli/internal/core/services"
	"github.com/custodia-labs/recall-cli/internal/logger"
	"github.com/custodia-labs/recall-cli/internal/normalisers"
	"github.com/custodia-labs/recall-cli/internal/postprocessors"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Provider keys may live in a local .env
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore(os.Getenv("RECALL_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cli.SetVersion(version)
	cli.SetConfigStore(cfg)

	vaultPath := os.Getenv("RECALL_VAULT")
	if vaultPath == "" {
		vaultPath = cfg.GetString("vault.path")
	}

	// Without a vault the init and version commands still work; the
	// rest report that they are not configured.
	if vaultPath != "" {
		closeIndex, err := wireServices(cfg, vaultPath)
		if err != nil {
			return err
		}
		defer closeIndex()
	}

	return cli.Execute()
}

// wireServices assembles the adapters and core services for one vault.
// Returns a closer releasing the index and its directory lock.
func wireServices(cfg driven.ConfigStore, vaultPath string) (func(), error) {
	embedder := buildEmbedder(cfg)

	index, err := sqlite.NewIndex(cfg.GetString("index.data_dir"), embedder)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	overlap := -1
	if _, ok := cfg.Get("chunking.overlap"); ok {
		overlap = cfg.GetInt("chunking.overlap")
	}
	pipeline := postprocessors.DefaultPipeline(cfg.GetInt("chunking.size"), overlap)

	source := filesystem.New("vault", vaultPath)
	watcher := services.NewWatcherService(vaultPath, source, normalisers.NewDefaultRegistry(), pipeline, index)

	cli.SetServices(services.NewQueryService(index), watcher)

	return func() {
		if err := index.Close(); err != nil {
			logger.Warn("Failed to close index: %v", err)
		}
	}, nil
}

// buildEmbedder selects the embedding provider from configuration.
// Ollama is the local-first default; "none" disables embedding, which
// stores entries without vectors and disables queries.
func buildEmbedder(cfg driven.ConfigStore) driven.EmbeddingService {
	switch provider := cfg.GetString("embedding.provider"); provider {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = cfg.GetString("embedding.api_key")
		}
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            apiKey,
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		})
		if err != nil {
			logger.Warn("OpenAI embedder unavailable: %v", err)
			return nil
		}
		return svc

	case "none":
		return nil

	default:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		})
	}
}
