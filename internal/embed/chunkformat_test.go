package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

func TestFormatChunkIncludesHeaderAndContent(t *testing.T) {
	c := domain.Chunk{SymbolPath: "pkg.Foo", Kind: domain.KindFunction, Content: "func Foo() {}"}
	out := FormatChunk(domain.LangGo, c)
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "pkg.Foo")
	assert.Contains(t, out, "func Foo() {}")
}

func TestEmbedChunksReturnsUnitVectors(t *testing.T) {
	p := NewMockProvider()
	chunks := []domain.Chunk{
		{SymbolPath: "a.Foo", Kind: domain.KindFunction, Content: "func Foo() {}"},
		{SymbolPath: "a.Bar", Kind: domain.KindFunction, Content: "func Bar() {}"},
	}
	vectors, err := EmbedChunks(context.Background(), p, domain.LangGo, chunks)
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	for _, v := range vectors {
		var sumSq float64
		for _, x := range v {
			sumSq += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
	}
}
