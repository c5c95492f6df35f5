package embed

import "context"

// EmbedMode selects the instruction prefix the model applies: queries
// and passages embed into the same space but are conditioned
// differently by the underlying model.
type EmbedMode string

const (
	// EmbedModeQuery conditions the embedding for search queries.
	EmbedModeQuery EmbedMode = "query"

	// EmbedModePassage conditions the embedding for indexed content:
	// code chunks, documentation, anything searched against.
	EmbedModePassage EmbedMode = "passage"
)

// Provider turns text into vectors. Implementations range from a
// local model server to a deterministic test mock.
type Provider interface {
	// Initialize performs any one-time setup (installing/starting a
	// local model server, loading model+tokenizer files) needed before
	// Embed can be called. Idempotent: a second call is a no-op.
	Initialize(ctx context.Context) error

	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string, mode EmbedMode) ([][]float32, error)

	// Dimensions is the width of every vector this provider produces.
	Dimensions() int

	// Close releases whatever the provider holds: for local providers
	// that includes stopping the background server process.
	Close() error

	// IsAvailable reports whether the provider is in "full" mode and
	// can serve embeddings. A provider in "degraded" mode (model or
	// tokenizer absent) returns false here; Embed on such a provider
	// returns ErrModelUnavailable rather than panicking, and the
	// retrieval core falls back to keyword + symbol signals only.
	IsAvailable() bool
}
