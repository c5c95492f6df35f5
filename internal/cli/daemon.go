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
	"github.com/steeltroops-ai/omnicontext/internal/daemon"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the long-lived search daemon for this repository",
	Long: `Daemon serves the engine over newline-delimited JSON-RPC 2.0 on a
local socket whose name is derived from the repository path, so IDE
integrations and agents can share one warm index instead of paying
engine startup per query.

Methods include ping, status, search, context_window, preflight,
module_map, index, ide_event, and shutdown.

Examples:
  # Serve the current repository
  cortex daemon
`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down daemon...")
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

	eng, err := engine.Open(cfg.ToEngineConfig(rootDir, cacheSettings.CacheLocation))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer eng.Shutdown()

	srv := daemon.New(eng)
	fmt.Printf("Daemon listening on %s\n", srv.SocketPath())
	return srv.ListenAndServe(ctx)
}
