package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates a non-positive embedding width.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates an overlap outside its valid range.
	ErrInvalidOverlap = errors.New("invalid overlap")

	// ErrEmptyEndpoint indicates a missing embedding endpoint.
	ErrEmptyEndpoint = errors.New("empty embedding endpoint")

	// ErrEmptyModel indicates a missing embedding model name.
	ErrEmptyModel = errors.New("empty embedding model")

	// ErrEmptyStrategy indicates no chunking strategy was configured.
	ErrEmptyStrategy = errors.New("empty chunking strategies")

	// ErrInvalidCacheSettings indicates negative cache eviction knobs.
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

var embeddingProviders = map[string]bool{
	"local":    true,
	"openai":   true,
	"mock":     true,
	"degraded": true,
}

var chunkingStrategies = map[string]bool{
	"symbols":     true,
	"definitions": true,
	"data":        true,
}

// Validate checks a loaded Config for values the engine cannot run
// with. Every failed check is reported, not just the first.
func Validate(cfg *Config) error {
	var errs []error
	fail := func(sentinel error, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
	}

	e := cfg.Embedding
	if !embeddingProviders[strings.ToLower(e.Provider)] {
		fail(ErrInvalidProvider, "must be one of local, openai, mock, degraded; got %q", e.Provider)
	}
	if strings.TrimSpace(e.Model) == "" {
		fail(ErrEmptyModel, "model is required")
	}
	if e.Dimensions <= 0 {
		fail(ErrInvalidDimensions, "dimensions must be positive, got %d", e.Dimensions)
	}
	if strings.TrimSpace(e.Endpoint) == "" {
		fail(ErrEmptyEndpoint, "endpoint is required")
	}

	c := cfg.Chunking
	if len(c.Strategies) == 0 {
		fail(ErrEmptyStrategy, "at least one strategy required")
	}
	for _, s := range c.Strategies {
		if !chunkingStrategies[s] {
			errs = append(errs, fmt.Errorf("unknown chunking strategy: %s (valid: symbols, definitions, data)", s))
		}
	}
	if c.DocChunkSize <= 0 {
		fail(ErrInvalidChunkSize, "doc_chunk_size must be positive, got %d", c.DocChunkSize)
	}
	if c.CodeChunkSize <= 0 {
		fail(ErrInvalidChunkSize, "code_chunk_size must be positive, got %d", c.CodeChunkSize)
	}
	if c.Overlap < 0 {
		fail(ErrInvalidOverlap, "overlap cannot be negative, got %d", c.Overlap)
	}
	if c.DocChunkSize > 0 && c.Overlap >= c.DocChunkSize {
		fail(ErrInvalidOverlap, "overlap (%d) must be less than doc_chunk_size (%d)", c.Overlap, c.DocChunkSize)
	}

	s := cfg.Storage
	if s.CacheMaxAgeDays < 0 {
		fail(ErrInvalidCacheSettings, "cache_max_age_days cannot be negative, got %d", s.CacheMaxAgeDays)
	}
	if s.CacheMaxSizeMB < 0 {
		fail(ErrInvalidCacheSettings, "cache_max_size_mb cannot be negative, got %.2f", s.CacheMaxSizeMB)
	}

	return errors.Join(errs...)
}
