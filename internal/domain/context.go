package domain

import (
	"fmt"
	"strings"
)

// ChunkPriority is the context-assembly tier controlling how
// aggressively an entry's content is compressed to fit the token
// budget.
type ChunkPriority int

const (
	PriorityLow ChunkPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// CompressionFactor returns how aggressively entries of this priority
// are compressed; 0 means never compressed. Values are load-bearing
// constants reproduced from the reference implementation, not tunables.
func (p ChunkPriority) CompressionFactor() float64 {
	switch p {
	case PriorityCritical:
		return 0.0
	case PriorityHigh:
		return 0.1
	case PriorityMedium:
		return 0.3
	default:
		return 0.6
	}
}

// PriorityFromScoreAndContext assigns a priority tier given a fused
// score and whether the chunk belongs to the active file or a test.
func PriorityFromScoreAndContext(score float64, isActiveFile, isTest bool) ChunkPriority {
	if isActiveFile {
		return PriorityCritical
	}
	if score >= 0.8 || isTest {
		return PriorityHigh
	}
	if score >= 0.5 {
		return PriorityMedium
	}
	return PriorityLow
}

// ScoreBreakdown records the per-signal contribution to a fused score,
// kept for observability and for S1/S2-style assertions in tests.
type ScoreBreakdown struct {
	SemanticRank     int
	KeywordRank      int
	RRFScore         float64
	StructuralWeight float64
	DependencyBoost  float64
	RecencyBoost     float64
}

// SearchResult is one ranked candidate returned by the retrieval core.
type SearchResult struct {
	ChunkID    int64
	FileID     int64
	FilePath   string
	SymbolPath string
	Kind       ChunkKind
	LineStart  int
	LineEnd    int
	Content    string
	DocComment string
	Score      float64
	Breakdown  ScoreBreakdown
}

// ContextEntry is one packed item in a ContextWindow.
type ContextEntry struct {
	FilePath        string
	Chunk           Chunk
	Score           float64
	Priority        ChunkPriority
	IsGraphNeighbor bool
}

// ContextWindow is the token-budget-aware assembled result of a
// search_context_window call.
type ContextWindow struct {
	Entries     []ContextEntry
	UsedTokens  int
	TokenBudget int
}

// TotalTokens sums the token count of every packed entry.
func (w *ContextWindow) TotalTokens() int {
	total := 0
	for _, e := range w.Entries {
		total += e.Chunk.TokenCount
	}
	return total
}

// Render flattens the window into one annotated text block for
// transports that deliver context as a single string (the daemon's
// preflight response, the MCP context tool).
func (w *ContextWindow) Render() string {
	var b strings.Builder
	for _, e := range w.Entries {
		fmt.Fprintf(&b, "### %s:%d-%d", e.FilePath, e.Chunk.LineStart, e.Chunk.LineEnd)
		if e.Chunk.SymbolPath != "" {
			fmt.Fprintf(&b, " (%s)", e.Chunk.SymbolPath)
		}
		if e.IsGraphNeighbor {
			b.WriteString(" [related]")
		}
		b.WriteByte('\n')
		b.WriteString(e.Chunk.Content)
		if !strings.HasSuffix(e.Chunk.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// QueryType classifies a query string for candidate-generation routing.
type QueryType int

const (
	QuerySymbol QueryType = iota
	QueryKeyword
	QueryNaturalLanguage
	QueryMixed
)

// QueryIntent classifies the underlying task behind a query, driving
// the context-assembly strategy.
type QueryIntent int

const (
	IntentUnknown QueryIntent = iota
	IntentExplain
	IntentEdit
	IntentDebug
	IntentRefactor
	IntentGenerate
)

// ContextStrategy controls which chunk kinds and how much graph depth
// the context assembler draws on for a given intent.
type ContextStrategy struct {
	IncludeArchitecture   bool
	IncludeImplementation bool
	IncludeTests          bool
	IncludeDocs           bool
	IncludeRecentChanges  bool
	GraphDepth            int
	PrioritizeHighLevel   bool
}
