package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CORTEX_*)
// 2. Project config file (.cortex/config.yml or .cortex/config.yaml)
// 3. User config file (~/.cortex/config.yml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	// Configure viper
	v := viper.New()

	// Set up config file search
	configDir := filepath.Join(l.rootDir, ".cortex")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Enable environment variable overrides
	v.SetEnvPrefix("CORTEX")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CORTEX_EMBEDDING_PROVIDER)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables to config keys
	// Embedding configuration
	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("embedding.endpoint")

	// Chunking configuration
	v.BindEnv("chunking.doc_chunk_size")
	v.BindEnv("chunking.code_chunk_size")
	v.BindEnv("chunking.overlap")

	// Storage configuration
	v.BindEnv("storage.backend")
	v.BindEnv("storage.cache_location")
	v.BindEnv("storage.branch_cache_enabled")
	v.BindEnv("storage.cache_max_age_days")
	v.BindEnv("storage.cache_max_size_mb")

	// Set defaults in viper
	setDefaults(v)

	// Layer the user config (~/.cortex/config.yml) above the compiled
	// defaults: the project file and env vars still win over it.
	layerUserConfig(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Some other error occurred while reading the config file
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate the configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Embedding defaults
	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", defaults.Embedding.Endpoint)

	// Paths defaults
	v.SetDefault("paths.code", defaults.Paths.Code)
	v.SetDefault("paths.docs", defaults.Paths.Docs)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	// Chunking defaults
	v.SetDefault("chunking.strategies", defaults.Chunking.Strategies)
	v.SetDefault("chunking.doc_chunk_size", defaults.Chunking.DocChunkSize)
	v.SetDefault("chunking.code_chunk_size", defaults.Chunking.CodeChunkSize)
	v.SetDefault("chunking.overlap", defaults.Chunking.Overlap)

	// Indexing defaults
	v.SetDefault("indexing.exclude_patterns", defaults.Indexing.ExcludePatterns)
	v.SetDefault("indexing.max_file_size_bytes", defaults.Indexing.MaxFileSizeBytes)
	v.SetDefault("indexing.parse_concurrency", defaults.Indexing.ParseConcurrency)
	v.SetDefault("indexing.follow_symlinks", defaults.Indexing.FollowSymlinks)
	v.SetDefault("indexing.event_queue_depth", defaults.Indexing.EventQueueDepth)

	// Search defaults
	v.SetDefault("search.retrieval_limit", defaults.Search.RetrievalLimit)
	v.SetDefault("search.rrf_k", defaults.Search.RRFK)
	v.SetDefault("search.keyword_weight", defaults.Search.KeywordWeight)
	v.SetDefault("search.semantic_weight", defaults.Search.SemanticWeight)
	v.SetDefault("search.symbol_weight", defaults.Search.SymbolWeight)
	v.SetDefault("search.max_candidates", defaults.Search.MaxCandidates)
	v.SetDefault("search.default_token_budget", defaults.Search.DefaultTokenBudget)

	// Reranker defaults
	v.SetDefault("reranker.enabled", defaults.Reranker.Enabled)
	v.SetDefault("reranker.provider", defaults.Reranker.Provider)
	v.SetDefault("reranker.rrf_weight", defaults.Reranker.RRFWeight)
	v.SetDefault("reranker.unranked_demotion", defaults.Reranker.UnrankedDemotion)
	v.SetDefault("reranker.max_seq_length", defaults.Reranker.MaxSeqLength)

	// Storage defaults (SQLite is the only backend now)
	v.SetDefault("storage.cache_location", defaults.Storage.CacheLocation)
	v.SetDefault("storage.branch_cache_enabled", defaults.Storage.BranchCacheEnabled)
	v.SetDefault("storage.cache_max_age_days", defaults.Storage.CacheMaxAgeDays)
	v.SetDefault("storage.cache_max_size_mb", defaults.Storage.CacheMaxSizeMB)
}

// userConfigDir is overridable in tests; by default the user tier
// lives under the home directory.
var userConfigDir = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cortex")
}

// layerUserConfig reads ~/.cortex/config.yml, if present, and applies
// its settings as defaults on v. Because they enter as defaults, the
// project config file and CORTEX_* env vars override them; because
// they are applied after setDefaults, they override the compiled
// defaults. A missing or unreadable user file is silently skipped —
// the user tier is optional.
func layerUserConfig(v *viper.Viper) {
	dir := userConfigDir()
	if dir == "" {
		return
	}

	user := viper.New()
	user.SetConfigName("config")
	user.SetConfigType("yaml")
	user.AddConfigPath(dir)
	if err := user.ReadInConfig(); err != nil {
		return
	}

	for _, key := range user.AllKeys() {
		v.SetDefault(key, user.Get(key))
	}
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
