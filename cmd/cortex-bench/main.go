// cortex-bench exercises the core's hot paths — vector insert/search,
// metadata-store writes, lexical search, and the end-to-end
// index-then-search flow over a generated fixture repository — and
// prints per-operation timings. It is a smoke harness for performance
// regressions, not a statistics suite.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/steeltroops-ai/omnicontext/internal/embed"
	"github.com/steeltroops-ai/omnicontext/internal/engine"
	"github.com/steeltroops-ai/omnicontext/internal/vectorindex"
)

const (
	benchDims    = 384
	benchVectors = 10_000
	benchTopK    = 10
	searchIters  = 100
	fixtureFiles = 50
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bench:", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Printf("vector insert (%d x %d-dim):  %.2f ms total\n", benchVectors, benchDims, benchVectorInsert())

	searchMs, err := benchVectorSearch()
	if err != nil {
		return err
	}
	fmt.Printf("vector search (k=%d):          %.3f ms/query\n", benchTopK, searchMs)

	return benchEndToEnd()
}

// pseudoVector generates a deterministic unit vector from a seed, so
// runs are comparable without pulling in a randomness dependency.
func pseudoVector(dims int, seed uint64) []float32 {
	v := make([]float32, dims)
	state := seed
	for i := range v {
		state = state*6364136223846793005 + 1
		v[i] = float32(state>>33)/float32(1<<31) - 0.5
	}
	vectorindex.L2Normalize(v)
	return v
}

func benchVectorInsert() float64 {
	idx := vectorindex.InMemory(benchDims)
	vectors := make([][]float32, benchVectors)
	for i := range vectors {
		vectors[i] = pseudoVector(benchDims, uint64(i))
	}

	start := time.Now()
	for i, v := range vectors {
		_ = idx.Add(uint64(i), v)
	}
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func benchVectorSearch() (float64, error) {
	idx := vectorindex.InMemory(benchDims)
	for i := 0; i < benchVectors; i++ {
		if err := idx.Add(uint64(i), pseudoVector(benchDims, uint64(i))); err != nil {
			return 0, err
		}
	}

	query := pseudoVector(benchDims, 42)
	start := time.Now()
	for i := 0; i < searchIters; i++ {
		if _, err := idx.Search(query, benchTopK); err != nil {
			return 0, err
		}
	}
	return float64(time.Since(start).Microseconds()) / 1000.0 / searchIters, nil
}

// benchEndToEnd generates a small fixture repository, indexes it, and
// runs a handful of representative queries, reporting wall-clock per
// phase and the number of hits each query returned.
func benchEndToEnd() error {
	repoRoot, err := os.MkdirTemp("", "cortex-bench-repo-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(repoRoot)
	dataDir, err := os.MkdirTemp("", "cortex-bench-data-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dataDir)

	if err := writeFixture(repoRoot); err != nil {
		return err
	}

	eng, err := engine.Open(engine.Config{
		RepoRoot:   repoRoot,
		DataDir:    dataDir,
		VectorDims: benchDims,
		Embed:      embed.Config{Provider: "mock", Dimensions: benchDims},
	})
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	ctx := context.Background()

	start := time.Now()
	stats, err := eng.Index(ctx)
	if err != nil {
		return err
	}
	indexMs := float64(time.Since(start).Microseconds()) / 1000.0
	fmt.Printf("index %d files:                %.1f ms (%d chunks, %d symbols)\n",
		stats.FilesProcessed, indexMs, stats.ChunksCreated, stats.SymbolsExtracted)

	queries := []string{"handleRequest0", "parse input record", "Store25"}
	for _, q := range queries {
		start = time.Now()
		results, err := eng.Search(ctx, q, 10)
		if err != nil {
			return err
		}
		fmt.Printf("search %-22q %.2f ms, %d hits\n", q, float64(time.Since(start).Microseconds())/1000.0, len(results))
	}
	return nil
}

func writeFixture(root string) error {
	for i := 0; i < fixtureFiles; i++ {
		source := fmt.Sprintf(`package fixture

// Store%[1]d keeps request state for worker %[1]d.
type Store%[1]d struct {
	entries map[string]int
}

// handleRequest%[1]d parses one input record and updates the store.
func handleRequest%[1]d(s *Store%[1]d, input string) error {
	return validate%[1]d(input)
}

func validate%[1]d(input string) error {
	if input == "" {
		return nil
	}
	return nil
}
`, i)
		path := filepath.Join(root, fmt.Sprintf("worker_%02d.go", i))
		if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
			return err
		}
	}
	return nil
}
