package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

func TestDetectCommunitiesGroupsDenseCluster(t *testing.T) {
	g := New()
	for i := int64(1); i <= 4; i++ {
		g.AddSymbol(sym(i, "n", "pkg.n"))
	}
	// Dense cluster {1,2,3}, isolated-ish vertex 4 attached weakly to 3.
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 1, Target: 2, Kind: domain.DepCalls}))
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 2, Target: 3, Kind: domain.DepCalls}))
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 3, Target: 1, Kind: domain.DepCalls}))
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 3, Target: 4, Kind: domain.DepCalls}))

	communities := g.DetectCommunities()
	assert.Len(t, communities, 4)
	// 1, 2, and 3 are mutually the majority neighbor of each other.
	assert.Equal(t, communities[1], communities[2])
}

func TestModularityNonNegativeForTrivialPartition(t *testing.T) {
	g := New()
	for i := int64(1); i <= 3; i++ {
		g.AddSymbol(sym(i, "n", "pkg.n"))
	}
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 1, Target: 2, Kind: domain.DepCalls}))
	require.NoError(t, g.AddEdge(domain.DependencyEdge{Source: 2, Target: 3, Kind: domain.DepCalls}))

	allOne := map[int64]int64{1: 1, 2: 1, 3: 1}
	q := g.Modularity(allOne)
	assert.GreaterOrEqual(t, q, 0.0)
}

func TestModularityEmptyGraphIsZero(t *testing.T) {
	g := New()
	assert.Equal(t, 0.0, g.Modularity(map[int64]int64{}))
}
