package config

// Config represents the complete cortex configuration.
// It can be loaded from .cortex/config.yml with environment variable overrides.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Indexing  IndexingConfig  `yaml:"indexing" mapstructure:"indexing"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Reranker  RerankerConfig  `yaml:"reranker" mapstructure:"reranker"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
}

// StorageConfig governs the on-disk metadata store cache location and
// its eviction policy. SQLite is the only backend.
type StorageConfig struct {
	Backend            string  `yaml:"backend" mapstructure:"backend"`
	CacheLocation      string  `yaml:"cache_location" mapstructure:"cache_location"`
	BranchCacheEnabled bool    `yaml:"branch_cache_enabled" mapstructure:"branch_cache_enabled"`
	CacheMaxAgeDays    int     `yaml:"cache_max_age_days" mapstructure:"cache_max_age_days"`
	CacheMaxSizeMB     float64 `yaml:"cache_max_size_mb" mapstructure:"cache_max_size_mb"`
}

// IndexingConfig governs the indexing pipeline's file discovery
// and concurrency limits.
type IndexingConfig struct {
	ExcludePatterns  []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`
	ParseConcurrency int      `yaml:"parse_concurrency" mapstructure:"parse_concurrency"`
	FollowSymlinks   bool     `yaml:"follow_symlinks" mapstructure:"follow_symlinks"`
	EventQueueDepth  int      `yaml:"event_queue_depth" mapstructure:"event_queue_depth"`
}

// SearchConfig governs the retrieval and ranking core.
type SearchConfig struct {
	RetrievalLimit     int     `yaml:"retrieval_limit" mapstructure:"retrieval_limit"`
	RRFK               int     `yaml:"rrf_k" mapstructure:"rrf_k"`
	KeywordWeight      float64 `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	SemanticWeight     float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`
	SymbolWeight       float64 `yaml:"symbol_weight" mapstructure:"symbol_weight"`
	MaxCandidates      int     `yaml:"max_candidates" mapstructure:"max_candidates"`
	DefaultTokenBudget int     `yaml:"default_token_budget" mapstructure:"default_token_budget"`
}

// RerankerConfig governs the optional cross-encoder reranking stage.
type RerankerConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider         string  `yaml:"provider" mapstructure:"provider"` // "local", "mock", "disabled"
	RRFWeight        float64 `yaml:"rrf_weight" mapstructure:"rrf_weight"`
	UnrankedDemotion float64 `yaml:"unranked_demotion" mapstructure:"unranked_demotion"`
	MaxSeqLength     int     `yaml:"max_seq_length" mapstructure:"max_seq_length"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "local", "mock" or "degraded"; "openai" passes validation but embed.NewProvider rejects it
	Model      string `yaml:"model" mapstructure:"model"`           // e.g., "BAAI/bge-small-en-v1.5"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // embedding vector dimensions
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // e.g., "http://localhost:8121/embed"
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Docs   []string `yaml:"docs" mapstructure:"docs"`     // glob patterns for documentation
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// ChunkingConfig defines how content is chunked for indexing.
type ChunkingConfig struct {
	Strategies    []string `yaml:"strategies" mapstructure:"strategies"`           // e.g., ["symbols", "definitions", "data"]
	DocChunkSize  int      `yaml:"doc_chunk_size" mapstructure:"doc_chunk_size"`   // max tokens per doc chunk
	CodeChunkSize int      `yaml:"code_chunk_size" mapstructure:"code_chunk_size"` // max characters per code chunk
	Overlap       int      `yaml:"overlap" mapstructure:"overlap"`                 // token overlap between chunks
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "BAAI/bge-small-en-v1.5",
			Dimensions: 384,
			Endpoint:   "http://localhost:8121/embed",
		},
		Paths: PathsConfig{
			Code: []string{
				"**/*.go",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.py",
				"**/*.rs",
				"**/*.c",
				"**/*.cpp",
				"**/*.cc",
				"**/*.h",
				"**/*.hpp",
				"**/*.php",
				"**/*.rb",
				"**/*.java",
			},
			Docs: []string{
				"**/*.md",
				"**/*.rst",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.test",
				"*.pyc",
			},
		},
		Chunking: ChunkingConfig{
			Strategies:    []string{"symbols", "definitions", "data"},
			DocChunkSize:  800,
			CodeChunkSize: 2000,
			Overlap:       100,
		},
		Indexing: IndexingConfig{
			ExcludePatterns: []string{
				"node_modules/**", "vendor/**", ".git/**", "dist/**",
				"build/**", "target/**", "__pycache__/**",
			},
			MaxFileSizeBytes: 1 << 20, // 1 MiB
			ParseConcurrency: 4,
			FollowSymlinks:   false,
			EventQueueDepth:  256,
		},
		Search: SearchConfig{
			RetrievalLimit:     100,
			RRFK:               60,
			KeywordWeight:      1.0,
			SemanticWeight:     1.0,
			SymbolWeight:       1.5,
			MaxCandidates:      100,
			DefaultTokenBudget: 4000,
		},
		Reranker: RerankerConfig{
			Enabled:          false,
			Provider:         "disabled",
			RRFWeight:        0.5,
			UnrankedDemotion: 0.5,
			MaxSeqLength:     512,
		},
		Storage: StorageConfig{
			Backend:            "sqlite",
			CacheLocation:      "",
			BranchCacheEnabled: true,
			CacheMaxAgeDays:    30,
			CacheMaxSizeMB:     500,
		},
	}
}
