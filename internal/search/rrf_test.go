package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseRRF_WeightsAndRanks(t *testing.T) {
	t.Parallel()

	keyword := rankedList{1, 2, 3}
	semantic := rankedList{2, 1, 4}
	symbol := rankedList{}

	weights := rrfWeights{Keyword: 1.0, Semantic: 1.0, Symbol: 1.5}
	out := fuseRRF(keyword, semantic, symbol, weights, 60)

	require := func(ok bool, msg string) {
		if !ok {
			t.Fatal(msg)
		}
	}
	require(len(out) == 4, "expected 4 fused chunk ids")

	// chunks 1 and 2 both score 1/61 + 1/62 (ranks 1 and 2, swapped between
	// keyword and semantic); the tie goes to the lower chunk id.
	assert.Equal(t, int64(1), out[0].ChunkID)
	assert.Equal(t, 1, out[0].KeywordRank)
	assert.Equal(t, 2, out[0].SemanticRank)
}

func TestFuseRRF_Deterministic(t *testing.T) {
	t.Parallel()
	weights := rrfWeights{Keyword: 1.0, Semantic: 1.0, Symbol: 1.5}
	a := fuseRRF(rankedList{1, 2}, nil, nil, weights, 60)
	b := fuseRRF(rankedList{1, 2}, nil, nil, weights, 60)
	assert.Equal(t, a, b)
}

func TestMinMaxNormalize(t *testing.T) {
	t.Parallel()
	out := minMaxNormalize([]float64{1, 2, 3})
	assert.Equal(t, []float64{0, 0.5, 1}, out)
}

func TestMinMaxNormalize_Constant(t *testing.T) {
	t.Parallel()
	out := minMaxNormalize([]float64{5, 5, 5})
	assert.Equal(t, []float64{0, 0, 0}, out)
}

func TestOverlapRatio(t *testing.T) {
	t.Parallel()
	assert.Greater(t, overlapRatio(1, 10, 5, 10), 0.5)
	assert.Equal(t, 0.0, overlapRatio(1, 5, 20, 30))
}
