// Package engine composes the long-lived resources of one indexed
// repository (the metadata store, vector index, dependency graph,
// embedder, optional reranker, indexing pipeline, and retrieval core)
// into a single value: no hidden singletons, everything reachable from
// one Engine created at startup and torn down on shutdown.
//
// This is the surface the CLI, daemon, and MCP collaborators call:
// Index, Search, SearchContextWindow, Status, ClearIndex, Shutdown.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/embed"
	"github.com/steeltroops-ai/omnicontext/internal/git"
	"github.com/steeltroops-ai/omnicontext/internal/graph"
	"github.com/steeltroops-ai/omnicontext/internal/pipeline"
	"github.com/steeltroops-ai/omnicontext/internal/rerank"
	"github.com/steeltroops-ai/omnicontext/internal/search"
	"github.com/steeltroops-ai/omnicontext/internal/store"
	"github.com/steeltroops-ai/omnicontext/internal/vectorindex"
	"github.com/steeltroops-ai/omnicontext/internal/workspace"
)

// Config bundles everything Open needs to stand up one repository's
// Engine. RepoRoot and DataDir together produce the on-disk layout
// "<data_dir>/repos/<hash>/metadata.db" and ".../vectors.bin",
// hash = sha256(canonical repo path)[0:6] hex.
type Config struct {
	RepoRoot   string
	DataDir    string
	Indexing   pipeline.Config
	Search     search.Config
	Embed      embed.Config
	Rerank     rerank.Config
	VectorDims int
}

// RepoHash returns the short hex hash the on-disk directory and the
// daemon's socket name are derived from. Delegates to
// workspace.ShortHash so both derivations share one normalization.
func RepoHash(canonicalRepoPath string) string {
	return workspace.ShortHash(canonicalRepoPath)
}

// Engine owns one repository's full indexing/retrieval stack.
type Engine struct {
	cfg      Config
	store    *store.Store
	vectors  *vectorindex.Index
	graph    *graph.DepGraph
	embedder embed.Provider
	reranker rerank.Reranker
	pipeline *pipeline.Pipeline
	search   *search.Retriever
}

// Open creates (or reopens) the repo-keyed data directory, wires every
// component together, and rehydrates the in-memory dependency graph
// from the store's persisted symbols and edges (the graph itself is
// never written to disk; only metadata.db and vectors.bin are).
func Open(cfg Config) (*Engine, error) {
	root, err := workspace.CanonicalRoot(cfg.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve repo root: %w", err)
	}
	repoDir := filepath.Join(cfg.DataDir, "repos", RepoHash(root))
	if err := os.MkdirAll(repoDir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: create data dir: %w", err)
	}

	st, err := store.Open(store.FilePath(repoDir))
	if err != nil {
		return nil, err
	}

	dims := cfg.VectorDims
	if dims == 0 {
		dims = 384
	}
	vecs, err := vectorindex.Open(filepath.Join(repoDir, "vectors.bin"), dims)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	embedder, err := embed.NewProvider(cfg.Embed)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("engine: build embedder: %w", err)
	}
	if err := embedder.Initialize(context.Background()); err != nil {
		// Degraded mode: the engine stays up on keyword + symbol
		// signals; IsAvailable() gates every embed call downstream.
		log.Printf("engine: embedder unavailable, continuing degraded: %v", err)
	}

	reranker, err := rerank.New(cfg.Rerank)
	if err != nil {
		_ = st.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("engine: build reranker: %w", err)
	}

	depGraph := graph.New()
	if err := rehydrateGraph(st, depGraph); err != nil {
		_ = st.Close()
		_ = embedder.Close()
		_ = reranker.Close()
		return nil, err
	}

	cfg.Indexing.RootDir = root
	pipe := pipeline.New(cfg.Indexing, st, vecs, depGraph, embedder)
	retriever := search.New(st, vecs, depGraph, embedder, reranker, cfg.Search)
	retriever.RootDir = root
	retriever.GitOps = git.NewOperations()

	cfg.RepoRoot = root
	return &Engine{
		cfg:      cfg,
		store:    st,
		vectors:  vecs,
		graph:    depGraph,
		embedder: embedder,
		reranker: reranker,
		pipeline: pipe,
		search:   retriever,
	}, nil
}

// rehydrateGraph loads every persisted symbol and edge into a fresh
// in-memory DepGraph. Called once at Open; after that the pipeline
// keeps the graph and store in sync incrementally per file.
func rehydrateGraph(st *store.Store, g *graph.DepGraph) error {
	symbols, err := st.AllSymbols()
	if err != nil {
		return fmt.Errorf("engine: load symbols: %w", err)
	}
	for _, sym := range symbols {
		g.AddSymbol(sym)
	}
	edges, err := st.AllEdges()
	if err != nil {
		return fmt.Errorf("engine: load edges: %w", err)
	}
	for _, e := range edges {
		_ = g.AddEdge(e) // both endpoints were just added above; failures are unreachable
	}
	return nil
}

// RepoRoot returns the canonical repository root this engine indexes.
func (e *Engine) RepoRoot() string { return e.cfg.RepoRoot }

// Store exposes the metadata store for collaborators that need reads
// the engine-level API doesn't wrap (the daemon's module_map, the MCP
// dependency tools). Mutations stay behind the engine methods.
func (e *Engine) Store() *store.Store { return e.store }

// Graph exposes the in-memory dependency graph for read-side
// collaborators (MCP dependency traversal).
func (e *Engine) Graph() *graph.DepGraph { return e.graph }

// Index runs a full scan of the repository and indexes every
// recognised, non-excluded file. It returns per-batch counts and never
// aborts on a single bad file.
func (e *Engine) Index(ctx context.Context) (pipeline.Stats, error) {
	paths, err := e.pipeline.FullScan()
	if err != nil {
		return pipeline.Stats{}, err
	}
	stats := e.pipeline.ProcessPaths(ctx, paths)
	if err := e.vectors.Save(); err != nil {
		return stats, fmt.Errorf("engine: save vector index: %w", err)
	}
	return stats, nil
}

// IndexEvents feeds a live event stream (from an external event
// source: filesystem watcher, git-log scraper, etc.) through the
// pipeline until the channel closes or an EventShutdown event arrives.
func (e *Engine) IndexEvents(ctx context.Context, events <-chan domain.PipelineEvent) (pipeline.Stats, error) {
	return e.pipeline.Run(ctx, events)
}

// Watch starts an fsnotify-backed filesystem watcher over the repo
// root and returns the resulting event stream, for callers that want
// to drive IndexEvents from live filesystem changes (`cortex index
// --watch`) instead of a one-shot Index.
func (e *Engine) Watch(ctx context.Context) (<-chan domain.PipelineEvent, error) {
	return e.pipeline.Watch(ctx)
}

// Search runs the retrieval pipeline and returns up to limit ranked,
// deduplicated results. An empty store is not an error, just an empty
// slice.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	return e.search.Search(ctx, query, limit)
}

// SearchContextWindow runs the retrieval pipeline and packs results
// into a token-budget-aware context window. A zero budget uses the
// configured default.
func (e *Engine) SearchContextWindow(ctx context.Context, query string, limit int, tokenBudget int) (*domain.ContextWindow, error) {
	return e.search.SearchContextWindow(ctx, query, limit, tokenBudget)
}

// Status reports store statistics, vector index size, and graph
// health for the JSON-RPC `status`/`system_status` methods.
type Status struct {
	store.Statistics
	VectorIndexLen int // live entries in the vector index; equals Statistics.VectorCount when store and index agree
	GraphNodes     int
	GraphEdges     int
	HasCycles      bool
	EmbedderUp     bool
	RerankerUp     bool
}

// Status reports the current state of every component.
func (e *Engine) Status() (Status, error) {
	stats, err := e.store.Statistics()
	if err != nil {
		return Status{}, err
	}
	return Status{
		Statistics:     stats,
		VectorIndexLen: e.vectors.Len(),
		GraphNodes:     e.graph.VertexCount(),
		GraphEdges:     e.graph.EdgeCount(),
		HasCycles:      len(e.graph.Cycles()) > 0,
		EmbedderUp:     e.embedder.IsAvailable(),
		RerankerUp:     e.reranker.IsAvailable(),
	}, nil
}

// ClearIndex wipes the metadata store, the vector index, and the
// in-memory dependency graph, leaving an empty, freshly indexable
// repository.
func (e *Engine) ClearIndex() error {
	if err := e.store.Clear(); err != nil {
		return err
	}
	e.vectors.Clear()
	if err := e.vectors.Save(); err != nil {
		return err
	}
	e.graph.Clear()
	return nil
}

// Shutdown flushes the vector index to disk and releases every
// component's resources. In-flight file tasks are expected to have
// drained before this is called.
func (e *Engine) Shutdown() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(e.pipeline.Shutdown())
	record(e.embedder.Close())
	record(e.reranker.Close())
	record(e.store.Close())
	return firstErr
}
