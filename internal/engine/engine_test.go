package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/embed"
)

const sampleSource = `package billing

func chargeCard(amount int) error {
	return validateAmount(amount)
}

func validateAmount(amount int) error {
	return nil
}
`

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	repoRoot := t.TempDir()
	dataDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "billing.go"), []byte(sampleSource), 0o644))

	cfg := Config{
		RepoRoot:   repoRoot,
		DataDir:    dataDir,
		VectorDims: 384,
		Embed:      embed.Config{Provider: "mock", Dimensions: 384},
	}
	e, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e, repoRoot
}

func TestEngine_OpenCreatesRepoScopedDataDir(t *testing.T) {
	e, _ := newTestEngine(t)

	hash := RepoHash(e.RepoRoot())
	assert.Len(t, hash, 6)

	repoDir := filepath.Join(e.cfg.DataDir, "repos", hash)
	info, err := os.Stat(repoDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEngine_IndexThenSearchFindsIndexedSymbol(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	stats, err := e.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.True(t, stats.ChunksCreated > 0)

	results, err := e.Search(ctx, "chargeCard", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var found bool
	for _, r := range results {
		if r.SymbolPath == "chargeCard" || r.SymbolPath == "billing.chargeCard" {
			found = true
		}
	}
	assert.True(t, found, "expected chargeCard among search results, got %+v", results)
}

func TestEngine_SearchContextWindowRespectsBudget(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Index(ctx)
	require.NoError(t, err)

	window, err := e.SearchContextWindow(ctx, "validateAmount", 5, 200)
	require.NoError(t, err)
	require.NotNil(t, window)
	assert.LessOrEqual(t, window.TotalTokens(), 200)
}

func TestEngine_StatusReportsComponentHealth(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Index(ctx)
	require.NoError(t, err)

	status, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.FileCount)
	assert.True(t, status.ChunkCount > 0)
	assert.Equal(t, status.VectorIndexLen, status.VectorCount)
	assert.True(t, status.EmbedderUp)
	assert.False(t, status.HasCycles)
}

func TestEngine_ClearIndexEmptiesEveryComponent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Index(ctx)
	require.NoError(t, err)

	require.NoError(t, e.ClearIndex())

	status, err := e.Status()
	require.NoError(t, err)
	assert.Equal(t, 0, status.FileCount)
	assert.Equal(t, 0, status.ChunkCount)
	assert.Equal(t, 0, status.VectorIndexLen)
	assert.Equal(t, 0, status.GraphNodes)

	results, err := e.Search(ctx, "chargeCard", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
