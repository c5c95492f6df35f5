package search

import (
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// ClassifyIntent maps a raw query string to a QueryIntent by keyword
// heuristics, ordered so the more specific buckets (Debug, Refactor)
// are checked before the broader ones (Generate, Edit) that would
// otherwise shadow them — e.g. "fix the login bug" must land on Debug,
// not Edit, even though it also contains "fix".
func ClassifyIntent(query string) domain.QueryIntent {
	q := strings.ToLower(query)

	debugWords := []string{"bug", "error", "fail", "crash", "issue", "problem", "broken", "debug", "trace", "exception"}
	if containsAny(q, debugWords) {
		return domain.IntentDebug
	}

	refactorWords := []string{"rename", "refactor", "move", "reorganize", "restructure", "extract", "inline", "usages", "references", "callers"}
	if containsAny(q, refactorWords) {
		return domain.IntentRefactor
	}

	explainWords := []string{"how", "what", "why", "explain", "understand", "describe", "overview", "architecture", "flow", "works"}
	if containsAny(q, explainWords) {
		return domain.IntentExplain
	}

	generateWords := []string{"create", "implement", "generate", "write", "build", "make"}
	if containsAny(q, generateWords) {
		return domain.IntentGenerate
	}

	editWords := []string{"fix", "change", "update", "modify", "edit", "improve", "optimize", "add", "new"}
	if containsAny(q, editWords) {
		return domain.IntentEdit
	}

	return domain.IntentUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// StrategyForIntent returns the context-assembly strategy for an
// intent.
func StrategyForIntent(intent domain.QueryIntent) domain.ContextStrategy {
	switch intent {
	case domain.IntentExplain:
		return domain.ContextStrategy{
			IncludeArchitecture:   true,
			IncludeImplementation: false,
			IncludeTests:          false,
			IncludeDocs:           true,
			IncludeRecentChanges:  false,
			GraphDepth:            2,
			PrioritizeHighLevel:   true,
		}
	case domain.IntentEdit:
		return domain.ContextStrategy{
			IncludeArchitecture:   false,
			IncludeImplementation: true,
			IncludeTests:          true,
			IncludeDocs:           false,
			IncludeRecentChanges:  false,
			GraphDepth:            1,
			PrioritizeHighLevel:   false,
		}
	case domain.IntentDebug:
		return domain.ContextStrategy{
			IncludeArchitecture:   false,
			IncludeImplementation: true,
			IncludeTests:          true,
			IncludeDocs:           false,
			IncludeRecentChanges:  true,
			GraphDepth:            1,
			PrioritizeHighLevel:   false,
		}
	case domain.IntentRefactor:
		return domain.ContextStrategy{
			IncludeArchitecture:   true,
			IncludeImplementation: true,
			IncludeTests:          true,
			IncludeDocs:           false,
			IncludeRecentChanges:  false,
			GraphDepth:            3,
			PrioritizeHighLevel:   false,
		}
	case domain.IntentGenerate:
		return domain.ContextStrategy{
			IncludeArchitecture:   true,
			IncludeImplementation: true,
			IncludeTests:          false,
			IncludeDocs:           true,
			IncludeRecentChanges:  false,
			GraphDepth:            1,
			PrioritizeHighLevel:   true,
		}
	default: // IntentUnknown
		return domain.ContextStrategy{
			IncludeArchitecture:   true,
			IncludeImplementation: true,
			IncludeTests:          true,
			IncludeDocs:           true,
			IncludeRecentChanges:  false,
			GraphDepth:            2,
			PrioritizeHighLevel:   false,
		}
	}
}
