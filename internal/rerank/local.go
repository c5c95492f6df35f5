package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// localReranker scores candidates against a local cross-encoder HTTP
// server, the same deployment shape as the embed package's local
// provider (internal/embed/local.go): a long-lived process reached over
// loopback HTTP rather than an in-process model runtime.
type localReranker struct {
	endpoint     string
	maxSeqLength int
	client       *http.Client
}

func newLocalReranker(cfg Config) *localReranker {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8122"
	}
	maxSeq := cfg.MaxSeqLength
	if maxSeq <= 0 {
		maxSeq = 512
	}
	return &localReranker{
		endpoint:     endpoint,
		maxSeqLength: maxSeq,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type rerankRequest struct {
	Query        string   `json:"query"`
	Documents    []string `json:"documents"`
	MaxSeqLength int      `json:"max_seq_length"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *localReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	truncated := make([]string, len(docs))
	for i, d := range docs {
		truncated[i] = truncateRunes(d, r.maxSeqLength*4)
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: truncated, MaxSeqLength: r.maxSeqLength})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank server returned status %d", resp.StatusCode)
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(out.Scores) != len(docs) {
		return nil, fmt.Errorf("rerank server returned %d scores for %d documents", len(out.Scores), len(docs))
	}
	return out.Scores, nil
}

// IsAvailable probes the reranker server's health endpoint. Unlike the
// embedder, the reranker has no persistent "initialized" flag: it is a
// best-effort side service, so every call re-checks reachability.
func (r *localReranker) IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (r *localReranker) Close() error { return nil }

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
