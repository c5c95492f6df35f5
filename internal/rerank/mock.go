package rerank

import (
	"context"
	"strings"
	"sync"
)

// MockReranker scores candidates by lexical token overlap with the
// query, giving deterministic, reproducible rankings for tests without
// a real cross-encoder server.
type MockReranker struct {
	mu         sync.Mutex
	scoreError error
}

// NewMockReranker returns a Reranker suitable for unit tests.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// SetScoreError configures the mock to fail every Score call.
func (m *MockReranker) SetScoreError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoreError = err
}

func (m *MockReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	m.mu.Lock()
	err := m.scoreError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	queryTokens := tokenSet(query)
	scores := make([]float64, len(docs))
	for i, doc := range docs {
		docTokens := tokenSet(doc)
		overlap := 0
		for t := range queryTokens {
			if docTokens[t] {
				overlap++
			}
		}
		if len(queryTokens) == 0 {
			scores[i] = 0
			continue
		}
		scores[i] = float64(overlap) / float64(len(queryTokens))
	}
	return scores, nil
}

func (m *MockReranker) IsAvailable() bool { return true }

func (m *MockReranker) Close() error { return nil }

func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f != "" {
			set[f] = true
		}
	}
	return set
}
