package embed

import (
	"context"
	"fmt"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/vectorindex"
)

// FormatChunk renders a chunk as the text handed to Provider.Embed: a
// short language/kind/symbol-path header followed by the chunk body. The
// header gives the embedding model enough signal to distinguish, say,
// a Python class from a Rust trait with similar prose content.
func FormatChunk(lang domain.Language, c domain.Chunk) string {
	return fmt.Sprintf("[%s] %s: %s\n%s", lang, c.SymbolPath, c.Kind, c.Content)
}

// EmbedChunks embeds a batch of chunks as passages and returns them
// L2-normalized, matching the normalization vectorindex.Index expects
// at insertion. Embedding is already mean-pooled/attention-masked
// inside the provider; this only enforces the final unit-length step
// uniformly regardless of which provider produced the vector.
func EmbedChunks(ctx context.Context, p Provider, lang domain.Language, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = FormatChunk(lang, c)
	}
	vectors, err := p.Embed(ctx, texts, EmbedModePassage)
	if err != nil {
		return nil, err
	}
	for _, v := range vectors {
		vectorindex.L2Normalize(v)
	}
	return vectors, nil
}
