package chunker

import (
	"strings"
	"testing"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokensFloorsAtOne(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 2, EstimateTokens("12345678"))
}

func TestTruncateToTokensIdempotent(t *testing.T) {
	content := strings.Repeat("line of source code\n", 200)
	once := TruncateToTokens(content, 50)
	twice := TruncateToTokens(once, 50)
	assert.Equal(t, once, twice)
	assert.LessOrEqual(t, EstimateTokens(once), 50)
}

func TestChunkElementsSmallElementSingleChunk(t *testing.T) {
	el := domain.StructuralElement{
		SymbolPath: "pkg.Foo",
		Name:       "Foo",
		Kind:       domain.KindFunction,
		Visibility: domain.VisPublic,
		LineStart:  10,
		LineEnd:    12,
		Content:    "func Foo() {\n    return\n}",
		DocComment: "Foo does a thing.",
	}
	chunks := ChunkElements([]domain.StructuralElement{el}, 1, DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "pkg.Foo", chunks[0].SymbolPath)
	assert.Equal(t, "Foo does a thing.", chunks[0].DocComment)
	assert.InDelta(t, domain.ComputeWeight(domain.KindFunction, domain.VisPublic), chunks[0].Weight, 1e-9)
}

func TestChunkElementsLargeElementSplitsAndCarriesDocOnlyOnFirst(t *testing.T) {
	var body strings.Builder
	body.WriteString("def big_function():\n")
	for i := 0; i < 400; i++ {
		body.WriteString("    if x:\n        do_something()\n")
	}
	el := domain.StructuralElement{
		SymbolPath: "mod.big_function",
		Name:       "big_function",
		Kind:       domain.KindFunction,
		Visibility: domain.VisPublic,
		LineStart:  1,
		LineEnd:    800,
		Content:    body.String(),
		DocComment: "A very long function.",
	}
	chunks := ChunkElements([]domain.StructuralElement{el}, 1, DefaultConfig())
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "A very long function.", chunks[0].DocComment)
	for _, c := range chunks[1:] {
		assert.Empty(t, c.DocComment)
		assert.Contains(t, c.Content, "continued from big_function")
	}
}

func TestWeightTablesMatchSpec(t *testing.T) {
	assert.Greater(t, domain.KindClass.DefaultWeight(), domain.KindTest.DefaultWeight())
	assert.Greater(t, domain.KindFunction.DefaultWeight(), domain.KindTopLevel.DefaultWeight())
	assert.Equal(t, 1.0, domain.VisPublic.WeightMultiplier())
}
