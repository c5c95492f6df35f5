package embed

import (
	"context"

	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// degradedProvider is the embedder's "degraded" mode: constructed
// when the model or tokenizer artifact is absent from disk. Every Embed call fails with
// ErrModelUnavailable; IsAvailable is always false so callers can
// short-circuit to keyword+symbol retrieval without attempting a
// doomed call first.
type degradedProvider struct {
	dimensions int
}

// NewDegradedProvider returns a Provider that reports itself
// unavailable and fails every embed call. dimensions should match
// whatever embedding.dimensions the config declares, so a vector index
// opened against this provider's Dimensions() still lines up once a
// real model is later substituted.
func NewDegradedProvider(dimensions int) Provider {
	return &degradedProvider{dimensions: dimensions}
}

// Initialize succeeds unconditionally: there is nothing to set up for
// a provider that is degraded by construction. Callers decide to use
// degradedProvider precisely because setup already failed or was
// skipped; failing Initialize too would give them nothing actionable.
func (p *degradedProvider) Initialize(ctx context.Context) error { return nil }

func (p *degradedProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	return nil, errs.ErrModelUnavailable
}

func (p *degradedProvider) Dimensions() int { return p.dimensions }

func (p *degradedProvider) Close() error { return nil }

func (p *degradedProvider) IsAvailable() bool { return false }
