package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Local code-intelligence engine for AI coding agents",
	Long: `Cortex indexes a source repository into a metadata store, a vector
index, and a dependency graph, then serves hybrid lexical/semantic/symbol
search and token-budget-aware context assembly over a CLI, a JSON-RPC
daemon, and an MCP tool surface.

Typical flow:
  cortex index            # build or refresh the index
  cortex search <query>   # ad-hoc hybrid search
  cortex daemon           # serve JSON-RPC on the repo's socket
  cortex mcp              # serve MCP tools over stdio
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .cortex/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads the --config file and CORTEX_* environment variables
// into the global viper instance. Per-command config loading goes
// through internal/config, which builds its own viper instance from the
// project and user config files and the environment; it does not read
// the global instance, so the --config file does not reach it.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("CORTEX")
	viper.AutomaticEnv()
}
