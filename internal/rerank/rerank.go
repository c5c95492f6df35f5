// Package rerank implements the optional cross-encoder reranking
// stage: a (query, candidate) scoring pass applied to the top
// max_candidates fused results before boosting.
package rerank

import "context"

// Reranker scores a batch of candidate texts against one query. Scores
// are cross-encoder relevance scores, not yet normalized — callers
// min-max normalize before blending with the fused RRF score.
type Reranker interface {
	// Score returns one relevance score per entry in docs, in the same
	// order. len(result) == len(docs) on success.
	Score(ctx context.Context, query string, docs []string) ([]float64, error)

	// IsAvailable reports whether the reranker can currently serve
	// requests. A caller should skip the rerank stage entirely rather
	// than call Score when this is false, matching the embedder's
	// degraded-mode contract.
	IsAvailable() bool

	// Close releases any resources (background process, connections)
	// held by the reranker.
	Close() error
}

// Config selects and configures a Reranker implementation.
type Config struct {
	// Provider selects the implementation: "local", "mock", or
	// "disabled". Empty defaults to "disabled" — the reranking stage
	// is opt-in.
	Provider string

	// Endpoint is the local reranker server's base URL, e.g.
	// "http://127.0.0.1:8122". Only used by the "local" provider.
	Endpoint string

	// MaxSeqLength bounds how much of each candidate's content is sent
	// to the cross-encoder per scoring call.
	MaxSeqLength int
}

// New constructs a Reranker from Config. "disabled" and "" both return
// a noopReranker whose IsAvailable() is always false, so callers that
// unconditionally build a Reranker still short-circuit the rerank
// stage without a nil check at every call site.
func New(cfg Config) (Reranker, error) {
	switch cfg.Provider {
	case "local":
		return newLocalReranker(cfg), nil
	case "mock":
		return NewMockReranker(), nil
	case "", "disabled":
		return noopReranker{}, nil
	default:
		return nil, errUnsupportedProvider(cfg.Provider)
	}
}

type noopReranker struct{}

func (noopReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	return nil, errRerankerDisabled
}
func (noopReranker) IsAvailable() bool { return false }
func (noopReranker) Close() error      { return nil }
