package search

import (
	"sort"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/graph"
)

// boosted pairs one candidate chunk with its post-boost score and the
// breakdown fields the caller surfaces in domain.SearchResult.
type boosted struct {
	Chunk     domain.Chunk
	FilePath  string
	SymbolID  int64 // 0 when the chunk has no owning symbol
	Score     float64
	Breakdown domain.ScoreBreakdown
}

const (
	inDegreeCap         = 20
	inDegreeBoostFactor = 0.05
	anchorDist1Bonus    = 0.30
	anchorDist2Bonus    = 0.10
	structuralFloor     = 0.4
	structuralSpan      = 0.6
	recencyBoostFactor  = 0.15
)

// applyStructuralAndGraphBoost computes
// boosted = fused * (0.4 + 0.6*structural) * graph_boost * recency_boost,
// halting once the running token total exceeds tokenBudget (0 disables
// the halt). chunks must already be ordered by descending fused score;
// the returned slice is re-sorted by boosted score. recentPaths is the
// commit-recency signal; nil disables it entirely.
func applyStructuralAndGraphBoost(
	chunks []boosted,
	g *graph.DepGraph,
	anchorSymbolID int64,
	hasAnchor bool,
	tokenBudget int,
	recentPaths map[string]bool,
) []boosted {
	runningTokens := 0
	kept := make([]boosted, 0, len(chunks))

	for _, c := range chunks {
		structural := domain.ComputeWeight(c.Chunk.Kind, c.Chunk.Visibility)
		c.Breakdown.StructuralWeight = structural

		graphBoost := 1.0
		if c.SymbolID != 0 && g != nil {
			inDegree := g.InDegree(c.SymbolID)
			if inDegree > inDegreeCap {
				inDegree = inDegreeCap
			}
			graphBoost = 1 + inDegreeBoostFactor*float64(inDegree)

			if hasAnchor && c.SymbolID != anchorSymbolID {
				switch g.Distance(anchorSymbolID, c.SymbolID, 2) {
				case 1:
					graphBoost += anchorDist1Bonus
				case 2:
					graphBoost += anchorDist2Bonus
				}
			}
		}
		c.Breakdown.DependencyBoost = graphBoost - 1

		recencyBoost := 1.0
		if recentPaths[c.FilePath] {
			recencyBoost = 1 + recencyBoostFactor
		}
		c.Breakdown.RecencyBoost = recencyBoost - 1

		c.Score = c.Score * (structuralFloor + structuralSpan*structural) * graphBoost * recencyBoost

		if tokenBudget > 0 && runningTokens > tokenBudget {
			break
		}
		runningTokens += c.Chunk.TokenCount
		kept = append(kept, c)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}
