package config

import (
	"github.com/steeltroops-ai/omnicontext/internal/chunker"
	"github.com/steeltroops-ai/omnicontext/internal/embed"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
	"github.com/steeltroops-ai/omnicontext/internal/pipeline"
	"github.com/steeltroops-ai/omnicontext/internal/rerank"
	"github.com/steeltroops-ai/omnicontext/internal/search"
)

// ToEngineConfig converts a loaded Config into the engine's composition
// root config, keyed to rootDir as the repository being indexed and
// dataDir as the base of the "<data_dir>/repos/<hash>/" on-disk layout.
func (c *Config) ToEngineConfig(rootDir, dataDir string) engine.Config {
	rerankerProvider := c.Reranker.Provider
	if !c.Reranker.Enabled {
		rerankerProvider = "disabled"
	}

	return engine.Config{
		RepoRoot:   rootDir,
		DataDir:    dataDir,
		VectorDims: c.Embedding.Dimensions,
		Indexing: pipeline.Config{
			RootDir:          rootDir,
			ExcludePatterns:  c.Indexing.ExcludePatterns,
			MaxFileSizeBytes: c.Indexing.MaxFileSizeBytes,
			ParseConcurrency: c.Indexing.ParseConcurrency,
			FollowSymlinks:   c.Indexing.FollowSymlinks,
			EventQueueDepth:  c.Indexing.EventQueueDepth,
			Chunker:          chunkerConfigFrom(c.Chunking),
		},
		Search: search.Config{
			RetrievalLimit:     c.Search.RetrievalLimit,
			RRFK:               c.Search.RRFK,
			KeywordWeight:      c.Search.KeywordWeight,
			SemanticWeight:     c.Search.SemanticWeight,
			SymbolWeight:       c.Search.SymbolWeight,
			MaxCandidates:      c.Search.MaxCandidates,
			RerankWeight:       c.Reranker.RRFWeight,
			UnrankedDemotion:   c.Reranker.UnrankedDemotion,
			DefaultTokenBudget: c.Search.DefaultTokenBudget,
		},
		Embed: embed.Config{
			Provider:   c.Embedding.Provider,
			Endpoint:   c.Embedding.Endpoint,
			Model:      c.Embedding.Model,
			Dimensions: c.Embedding.Dimensions,
		},
		Rerank: rerank.Config{
			Provider:     rerankerProvider,
			MaxSeqLength: c.Reranker.MaxSeqLength,
		},
	}
}

// chunkerConfigFrom maps the documentation-oriented ChunkingConfig knobs
// onto the chunker's token-budget parameters, falling back to the
// chunker's own defaults when CodeChunkSize is unset.
func chunkerConfigFrom(cc ChunkingConfig) chunker.Config {
	cfg := chunker.DefaultConfig()
	// CodeChunkSize counts characters; the chunker estimates one token
	// per four characters.
	if tokens := cc.CodeChunkSize / 4; tokens > 0 {
		cfg.MaxTokens = tokens
		if cc.Overlap > 0 {
			cfg.Overlap = float64(cc.Overlap) / float64(tokens)
		}
	}
	return cfg
}
