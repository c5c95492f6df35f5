package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesSchemaAndRejectsSecondWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path)
	assert.Error(t, err)
}

func TestUpsertAndGetFile(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{Path: "a.go", Language: domain.LangGo, ContentHash: "h1", SizeBytes: 10, LastModified: 100}
	id, err := s.UpsertFile(f)
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, ok, err := s.GetFile("a.go")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h1", got.ContentHash)

	f.ContentHash = "h2"
	_, err = s.UpsertFile(f)
	require.NoError(t, err)
	got, _, _ = s.GetFile("a.go")
	assert.Equal(t, "h2", got.ContentHash)
}

func TestReindexFileReplacesChunksSymbolsEdges(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{Path: "a.go", Language: domain.LangGo, ContentHash: "h1"}
	chunks := []domain.Chunk{{SymbolPath: "a.Foo", Kind: domain.KindFunction, Visibility: domain.VisPublic, Content: "func Foo(){}"}}
	result, err := s.ReindexFile(f, chunks, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.ChunkIDs, 1)

	got, err := s.ChunksByFile(result.FileID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.Foo", got[0].SymbolPath)

	// Re-index with a different chunk; the old one must be gone.
	chunks2 := []domain.Chunk{{SymbolPath: "a.Bar", Kind: domain.KindFunction, Visibility: domain.VisPublic, Content: "func Bar(){}"}}
	result2, err := s.ReindexFile(f, chunks2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, result.FileID, result2.FileID)

	got2, err := s.ChunksByFile(result2.FileID)
	require.NoError(t, err)
	require.Len(t, got2, 1)
	assert.Equal(t, "a.Bar", got2[0].SymbolPath)
}

func TestReindexFileDeletesStaleEdgesBeforeSymbols(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{Path: "a.go", Language: domain.LangGo, ContentHash: "h1"}
	symbols := []domain.Symbol{{Name: "Foo", FQN: "pkg.Foo", Kind: domain.KindFunction, Line: 1}}
	result, err := s.ReindexFile(f, nil, symbols, nil)
	require.NoError(t, err)
	require.Len(t, result.SymbolIDs, 1)

	require.NoError(t, s.InsertDependency(domain.DependencyEdge{
		Source: result.SymbolIDs[0], Target: result.SymbolIDs[0], Kind: domain.DepCalls,
	}))
	all, err := s.AllEdges()
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Reindexing replaces the symbols; every edge incident on the old
	// ids must be gone and none may dangle.
	result2, err := s.ReindexFile(f, nil, symbols, nil)
	require.NoError(t, err)
	require.Len(t, result2.SymbolIDs, 1)
	assert.NotEqual(t, result.SymbolIDs[0], result2.SymbolIDs[0])

	all, err = s.AllEdges()
	require.NoError(t, err)
	assert.Empty(t, all)

	problems, err := s.CheckIntegrity()
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDeleteFileCascades(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{Path: "a.go", Language: domain.LangGo, ContentHash: "h1"}
	chunks := []domain.Chunk{{SymbolPath: "a.Foo", Kind: domain.KindFunction, Content: "x"}}
	result, err := s.ReindexFile(f, chunks, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile("a.go"))

	got, err := s.ChunksByFile(result.FileID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchLexicalFindsMatch(t *testing.T) {
	s := openTestStore(t)

	f := domain.File{Path: "a.go", Language: domain.LangGo, ContentHash: "h1"}
	chunks := []domain.Chunk{
		{SymbolPath: "a.Foo", Kind: domain.KindFunction, Content: "func Foo() { return computeHash() }"},
		{SymbolPath: "a.Bar", Kind: domain.KindFunction, Content: "func Bar() { return 42 }"},
	}
	_, err := s.ReindexFile(f, chunks, nil, nil)
	require.NoError(t, err)

	hits, err := s.SearchLexical("computeHash", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}
