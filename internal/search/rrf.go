package search

import "sort"

// rankedList is one candidate-generation signal's output, chunk ids in
// descending relevance order (rank 1 = best).
type rankedList []int64

// fused is one chunk's combined RRF score plus the per-signal ranks it
// appeared at, 0 meaning "absent from that signal" — fed straight into
// domain.ScoreBreakdown by the caller.
type fused struct {
	ChunkID      int64
	Score        float64
	KeywordRank  int
	SemanticRank int
	SymbolRank   int
}

// rrfWeights names the three candidate-generation signals and their
// fusion weight.
type rrfWeights struct {
	Keyword  float64
	Semantic float64
	Symbol   float64
}

// fuseRRF combines the three ranked candidate lists via Reciprocal
// Rank Fusion: each list contributes weight/(k+rank) to its chunk ids'
// accumulators. Result is sorted descending by fused score.
func fuseRRF(keyword, semantic, symbol rankedList, weights rrfWeights, k int) []fused {
	scores := make(map[int64]*fused)

	get := func(id int64) *fused {
		f, ok := scores[id]
		if !ok {
			f = &fused{ChunkID: id}
			scores[id] = f
		}
		return f
	}

	for i, id := range keyword {
		rank := i + 1
		f := get(id)
		f.Score += weights.Keyword / float64(k+rank)
		f.KeywordRank = rank
	}
	for i, id := range semantic {
		rank := i + 1
		f := get(id)
		f.Score += weights.Semantic / float64(k+rank)
		f.SemanticRank = rank
	}
	for i, id := range symbol {
		rank := i + 1
		f := get(id)
		f.Score += weights.Symbol / float64(k+rank)
		f.SymbolRank = rank
	}

	out := make([]fused, 0, len(scores))
	for _, f := range scores {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// minMaxNormalize rescales values to [0,1]. A constant input slice
// normalizes to all zeros rather than dividing by zero.
func minMaxNormalize(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(values))
	if max == min {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}
