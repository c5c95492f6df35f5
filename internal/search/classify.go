package search

import (
	"regexp"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var questionWords = []string{"who", "what", "when", "where", "why", "how", "which", "is", "can", "does", "do"}

// ClassifyQueryType buckets a raw query string into {Symbol, Keyword,
// NaturalLanguage, Mixed} for candidate-generation routing.
func ClassifyQueryType(query string) domain.QueryType {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.QueryKeyword
	}

	if isSymbolLike(trimmed) {
		return domain.QuerySymbol
	}

	if strings.HasSuffix(trimmed, "?") || startsWithQuestionWord(trimmed) {
		return domain.QueryNaturalLanguage
	}

	wordCount := len(strings.Fields(trimmed))
	if wordCount <= 3 {
		return domain.QueryMixed
	}

	return domain.QueryNaturalLanguage
}

// isSymbolLike reports whether the query is whitespace-free and either
// contains a qualified-name separator (::, ., __) or is itself a bare
// identifier.
func isSymbolLike(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	if strings.Contains(s, "::") || strings.Contains(s, ".") || strings.Contains(s, "__") {
		return true
	}
	return identifierPattern.MatchString(s)
}

func startsWithQuestionWord(s string) bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], "?,.!")
	for _, w := range questionWords {
		if first == w {
			return true
		}
	}
	return false
}
