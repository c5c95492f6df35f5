package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steeltroops-ai/omnicontext/internal/cache"
	"github.com/steeltroops-ai/omnicontext/internal/config"
	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

var (
	searchLimit       int
	searchTokenBudget int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed codebase",
	Long: `Search runs the retrieval and ranking core against the store,
vector index, and dependency graph built by the most recent 'cortex index',
fusing BM25, vector-cosine, and symbol-exact signals via reciprocal rank
fusion and printing the top-ranked chunks.

Examples:
  cortex search "parse JSON config"
  cortex search --limit 5 "retry with backoff"
  cortex search --token-budget 4000 "authentication middleware"
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	searchCmd.Flags().IntVar(&searchTokenBudget, "token-budget", 0, "Pack results into a context window of this many tokens (0 disables packing)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

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

	ctx := context.Background()

	if searchTokenBudget > 0 {
		window, err := eng.SearchContextWindow(ctx, query, searchLimit, searchTokenBudget)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		printContextWindow(window)
		return nil
	}

	results, err := eng.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printSearchResults(results)
	return nil
}

func printSearchResults(results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s:%d-%d  %s  [%s]  score=%.4f\n", i+1, r.FilePath, r.LineStart, r.LineEnd, r.SymbolPath, r.Kind, r.Score)
		if r.DocComment != "" {
			fmt.Printf("   %s\n", r.DocComment)
		}
	}
}

func printContextWindow(w *domain.ContextWindow) {
	fmt.Printf("Packed %d entries, %d/%d tokens\n\n", len(w.Entries), w.TotalTokens(), w.TokenBudget)
	for i, e := range w.Entries {
		fmt.Printf("%d. %s:%d-%d  %s  score=%.4f  priority=%d\n", i+1, e.FilePath, e.Chunk.LineStart, e.Chunk.LineEnd, e.Chunk.SymbolPath, e.Score, e.Priority)
	}
}
