package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steeltroops-ai/omnicontext/internal/cache"
	"github.com/steeltroops-ai/omnicontext/internal/config"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

// statusCmd reports the engine's component health and store statistics.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and component health",
	Long: `Status reports the metadata store's file/chunk/symbol counts, the
live vector index size, dependency graph node/edge counts and whether any
import cycles exist, and whether the embedder and reranker are available.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	eng, err := engine.Open(cfg.ToEngineConfig(rootDir, cacheSettings.CacheLocation))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Shutdown()

	status, err := eng.Status()
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	fmt.Printf("Files:        %d\n", status.FileCount)
	fmt.Printf("Chunks:       %d\n", status.ChunkCount)
	fmt.Printf("Symbols:      %d\n", status.SymbolCount)
	fmt.Printf("Vector index: %d entries\n", status.VectorIndexLen)
	fmt.Printf("Graph:        %d nodes, %d edges, cycles=%t\n", status.GraphNodes, status.GraphEdges, status.HasCycles)
	fmt.Printf("Embedder up:  %t\n", status.EmbedderUp)
	fmt.Printf("Reranker up:  %t\n", status.RerankerUp)
	return nil
}

var clearQuietFlag bool

// clearCmd wipes the store, vector index, and dependency graph so the
// next 'cortex index' starts from a clean slate.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the index for the current repository",
	Long: `Clear wipes the metadata store, the vector index, and the in-memory
dependency graph built for the current repository, leaving it ready for a
fresh 'cortex index' run.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearQuietFlag, "quiet", "q", false, "Suppress output")
}

func runClear(cmd *cobra.Command, args []string) error {
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

	eng, err := engine.Open(cfg.ToEngineConfig(rootDir, cacheSettings.CacheLocation))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Shutdown()

	if err := eng.ClearIndex(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if !clearQuietFlag {
		fmt.Println("Index cleared.")
	}
	return nil
}
