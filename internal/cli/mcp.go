package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steeltroops-ai/omnicontext/internal/cache"
	"github.com/steeltroops-ai/omnicontext/internal/config"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
	"github.com/steeltroops-ai/omnicontext/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index as Model-Context-Protocol tools over stdio",
	Long: `MCP exposes search, context assembly, dependency traversal, status,
and indexing as MCP tools over stdin/stdout, for agents that speak MCP
instead of the daemon's JSON-RPC socket.

Register in an MCP client config as:
  { "command": "cortex", "args": ["mcp"] }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	return mcp.NewServer(eng).ServeStdio()
}
