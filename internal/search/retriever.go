// Package search implements the retrieval & ranking core: query
// classification, expansion, three-signal candidate generation,
// Reciprocal Rank Fusion, optional cross-encoder reranking, structural
// and dependency-graph boosting, dedup, and context-window assembly.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/embed"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
	"github.com/steeltroops-ai/omnicontext/internal/git"
	"github.com/steeltroops-ai/omnicontext/internal/graph"
	"github.com/steeltroops-ai/omnicontext/internal/rerank"
	"github.com/steeltroops-ai/omnicontext/internal/store"
	"github.com/steeltroops-ai/omnicontext/internal/vectorindex"
)

// recentChangesWindow bounds how far back the commit-recency signal
// looks when a query's intent sets ContextStrategy.IncludeRecentChanges.
const recentChangesWindow = 7 * 24 * time.Hour

// Config bundles the tunables for the retrieval pipeline, mirroring
// config.SearchConfig plus the reranker's rrf_weight/unranked_demotion
// (kept here rather than imported from config to avoid internal/search
// depending on internal/config).
type Config struct {
	RetrievalLimit     int
	RRFK               int
	KeywordWeight      float64
	SemanticWeight     float64
	SymbolWeight       float64
	MaxCandidates      int
	RerankWeight       float64
	UnrankedDemotion   float64
	DefaultTokenBudget int
}

// DefaultConfig returns the retrieval pipeline's default tunables.
func DefaultConfig() Config {
	return Config{
		RetrievalLimit:     100,
		RRFK:               60,
		KeywordWeight:      1.0,
		SemanticWeight:     1.0,
		SymbolWeight:       1.5,
		MaxCandidates:      100,
		RerankWeight:       0.5,
		UnrankedDemotion:   0.5,
		DefaultTokenBudget: 4000,
	}
}

// Retriever composes the long-lived resources the retrieval core reads
// from: the metadata store, vector index, dependency graph, embedder,
// and optional reranker. It holds no
// per-query state.
type Retriever struct {
	Store    *store.Store
	Index    *vectorindex.Index
	Graph    *graph.DepGraph
	Embedder embed.Provider
	Reranker rerank.Reranker
	Cfg      Config

	// RootDir and GitOps back the commit-recency signal: when a
	// query's ContextStrategy.IncludeRecentChanges is set,
	// recently-touched files are boosted. GitOps may be nil outside a
	// git repository, in which case the boost is skipped.
	RootDir string
	GitOps  git.Operations
}

// New constructs a Retriever. reranker may be a no-op (rerank.New with
// Provider "disabled") — Search degrades gracefully either way.
func New(s *store.Store, idx *vectorindex.Index, g *graph.DepGraph, embedder embed.Provider, reranker rerank.Reranker, cfg Config) *Retriever {
	return &Retriever{Store: s, Index: idx, Graph: g, Embedder: embedder, Reranker: reranker, Cfg: cfg}
}

// pipelineOutcome is what runPipeline hands to Search and
// SearchContextWindow: the boosted candidates before dedup/assembly,
// plus the anchor symbol, intent and strategy that assembly needs.
type pipelineOutcome struct {
	Results        []boosted
	AnchorSymbolID int64
	HasAnchor      bool
	Intent         domain.QueryIntent
	Strategy       domain.ContextStrategy
}

// Search runs the full retrieval pipeline and returns up to limit
// ranked, deduplicated results, without the context-window-only
// file-cluster/graph-neighbor expansion.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", errs.ErrInvalidParams)
	}
	if limit <= 0 {
		limit = 10
	}

	outcome, err := r.runPipeline(ctx, query)
	if err != nil {
		return nil, err
	}

	deduped := dedupOverlap(outcome.Results, limit)
	results := make([]domain.SearchResult, 0, len(deduped))
	for _, b := range deduped {
		results = append(results, toSearchResult(b))
	}
	return results, nil
}

// SearchContextWindow runs the retrieval pipeline and packs the result
// into a token-budget-aware ContextWindow: file-cluster inclusion,
// 1-hop graph neighbors, priority assignment, and compression.
func (r *Retriever) SearchContextWindow(ctx context.Context, query string, limit int, tokenBudget int) (*domain.ContextWindow, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", errs.ErrInvalidParams)
	}
	if limit <= 0 {
		limit = 10
	}
	if tokenBudget <= 0 {
		tokenBudget = r.Cfg.DefaultTokenBudget
	}

	outcome, err := r.runPipeline(ctx, query)
	if err != nil {
		return nil, err
	}

	deduped := dedupOverlap(outcome.Results, limit)
	return r.assemble(deduped, outcome, tokenBudget)
}

func toSearchResult(b boosted) domain.SearchResult {
	return domain.SearchResult{
		ChunkID:    b.Chunk.ID,
		FileID:     b.Chunk.FileID,
		FilePath:   b.FilePath,
		SymbolPath: b.Chunk.SymbolPath,
		Kind:       b.Chunk.Kind,
		LineStart:  b.Chunk.LineStart,
		LineEnd:    b.Chunk.LineEnd,
		Content:    b.Chunk.Content,
		DocComment: b.Chunk.DocComment,
		Score:      b.Score,
		Breakdown:  b.Breakdown,
	}
}
