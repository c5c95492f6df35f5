package search

import (
	"strings"
	"unicode"
)

// stopWords is the set of natural-language filler words stripped
// before sub-token splitting. Kept intentionally small — the goal is
// to drop connective noise, not to implement a general NLP stopword
// list.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "to": true,
	"of": true, "in": true, "on": true, "at": true, "for": true, "with": true,
	"and": true, "or": true, "but": true, "this": true, "that": true,
	"it": true, "do": true, "does": true, "how": true, "what": true,
	"why": true, "can": true, "i": true, "you": true,
}

// ExpandQuery rewrites a natural-language query for lexical search:
// strip stop words,
// split remaining tokens into sub-tokens at punctuation and
// CamelCase/UPPERCASE boundaries, dedup preserving order, join with
// " OR ". Falls back to the raw query when expansion yields nothing.
func ExpandQuery(query string) string {
	var subtokens []string
	seen := make(map[string]bool)

	for _, field := range strings.Fields(query) {
		lower := strings.ToLower(field)
		if stopWords[lower] {
			continue
		}
		for _, sub := range splitSubtokens(field) {
			key := strings.ToLower(sub)
			if key == "" || stopWords[key] || seen[key] {
				continue
			}
			seen[key] = true
			subtokens = append(subtokens, sub)
		}
	}

	if len(subtokens) == 0 {
		return query
	}
	return strings.Join(subtokens, " OR ")
}

// splitSubtokens splits one token at {_, ., :, -, /} and at
// CamelCase/UPPERCASE boundaries: "HTTPServer" -> "HTTP","Server";
// "processFileHash" -> "process","File","Hash".
func splitSubtokens(token string) []string {
	var parts []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			parts = append(parts, string(current))
			current = nil
		}
	}

	runes := []rune(token)
	for i, r := range runes {
		if strings.ContainsRune("_.:-/", r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			startsNewWord := unicode.IsLower(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]))
			if startsNewWord {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return parts
}
