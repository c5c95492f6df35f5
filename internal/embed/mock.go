package embed

import (
	"context"
	"hash/fnv"
)

// MockProvider derives embeddings from an FNV hash of the input text:
// deterministic, content-sensitive, and free of model files, which is
// all the engine and pipeline tests need from a "full mode" embedder.
type MockProvider struct {
	dimensions int
}

// NewMockProvider returns a mock embedder at the default width.
func NewMockProvider() *MockProvider {
	return &MockProvider{dimensions: 384}
}

// Initialize is a no-op; the mock is always ready.
func (p *MockProvider) Initialize(ctx context.Context) error { return nil }

// Embed maps each text to a unit-free pseudo-random vector seeded by
// the text's hash, so equal texts embed identically and different
// texts (almost always) differ.
func (p *MockProvider) Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		h.Write([]byte(text))
		state := h.Sum64()

		v := make([]float32, p.dimensions)
		for d := range v {
			state = state*6364136223846793005 + 1442695040888963407
			v[d] = float32(state>>41)/float32(1<<23) - 0.5
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (p *MockProvider) Dimensions() int { return p.dimensions }

func (p *MockProvider) Close() error { return nil }

// IsAvailable always reports true; degraded-mode paths are covered by
// NewDegradedProvider instead.
func (p *MockProvider) IsAvailable() bool { return true }

var _ Provider = (*MockProvider)(nil)
