package search

import (
	"testing"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyQueryType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  domain.QueryType
	}{
		{"parseFileHash", domain.QuerySymbol},
		{"foo::bar", domain.QuerySymbol},
		{"mod.Sub", domain.QuerySymbol},
		{"how does auth work?", domain.QueryNaturalLanguage},
		{"why is this slow", domain.QueryNaturalLanguage},
		{"config loader", domain.QueryMixed},
		{"where is the database connection pool configured in this service", domain.QueryNaturalLanguage},
	}

	for _, tc := range cases {
		got := ClassifyQueryType(tc.query)
		assert.Equalf(t, tc.want, got, "query %q", tc.query)
	}
}

func TestClassifyIntent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  domain.QueryIntent
	}{
		{"fix the login bug", domain.IntentDebug},
		{"why is this crashing?", domain.IntentDebug},
		{"rename this function", domain.IntentRefactor},
		{"find all usages of AuthService", domain.IntentRefactor},
		{"how does authentication work?", domain.IntentExplain},
		{"create a new API endpoint", domain.IntentGenerate},
		{"update the configuration", domain.IntentEdit},
		{"authentication", domain.IntentUnknown},
	}

	for _, tc := range cases {
		got := ClassifyIntent(tc.query)
		assert.Equalf(t, tc.want, got, "query %q", tc.query)
	}
}

func TestStrategyForIntent_Debug(t *testing.T) {
	t.Parallel()
	s := StrategyForIntent(domain.IntentDebug)
	assert.False(t, s.IncludeArchitecture)
	assert.True(t, s.IncludeImplementation)
	assert.True(t, s.IncludeTests)
	assert.True(t, s.IncludeRecentChanges)
	assert.Equal(t, 1, s.GraphDepth)
}

func TestStrategyForIntent_Explain(t *testing.T) {
	t.Parallel()
	s := StrategyForIntent(domain.IntentExplain)
	assert.True(t, s.IncludeArchitecture)
	assert.False(t, s.IncludeImplementation)
	assert.True(t, s.PrioritizeHighLevel)
	assert.Equal(t, 2, s.GraphDepth)
}
