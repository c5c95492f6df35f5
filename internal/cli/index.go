package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steeltroops-ai/omnicontext/internal/cache"
	"github.com/steeltroops-ai/omnicontext/internal/config"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

var (
	quietFlag bool
	watchFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the codebase for semantic search",
	Long: `Index processes your codebase and builds the metadata store, vector
index, and dependency graph that power search and search_context_window.

The indexer:
  - Parses source code (Go, TypeScript, Python, etc.) into symbols
  - Chunks each file's structural elements within the token budget
  - Generates embeddings for every chunk via the configured provider
  - Builds the directed dependency graph from imports and calls
  - Persists everything under <data_dir>/repos/<hash>/

Examples:
  # Index the current directory
  cortex index

  # Index with progress output disabled
  cortex index --quiet
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling indexing...")
		cancel()
	}()

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cacheSettings, err := cache.LoadOrCreateSettings(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load cache settings: %w", err)
	}
	dataDir := cacheSettings.CacheLocation

	if !quietFlag {
		fmt.Println("Opening engine...")
	}

	eng, err := engine.Open(cfg.ToEngineConfig(rootDir, dataDir))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Shutdown()

	if !quietFlag {
		fmt.Println("✓ Engine ready")
	}

	progress := NewCLIProgressReporter(quietFlag)
	progress.Start()

	stats, err := eng.Index(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	progress.Finish(stats)

	if !watchFlag {
		return nil
	}

	if !quietFlag {
		fmt.Println("Watching for file changes (Ctrl-C to stop)...")
	}

	events, err := eng.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	watchStats, err := eng.IndexEvents(ctx, events)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}

	progress.Finish(watchStats)
	return nil
}
