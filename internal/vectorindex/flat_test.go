package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2NormalizeUnitLength(t *testing.T) {
	v := []float32{3, 4, 0}
	L2Normalize(v)
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestL2NormalizeZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	L2Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestL2NormalizeIdempotent(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	L2Normalize(v)
	once := append([]float32(nil), v...)
	L2Normalize(v)
	assert.Equal(t, once, v)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	idx := InMemory(4)
	err := idx.Add(1, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	idx := InMemory(3)
	require.NoError(t, idx.Add(1, []float32{1, 0, 0}))
	require.NoError(t, idx.Add(2, []float32{0, 1, 0}))
	require.NoError(t, idx.Add(3, []float32{0.9, 0.1, 0}))

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].ID)
	assert.Equal(t, uint64(3), results[1].ID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	idx, err := Open(path, 4)
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []float32{1, 2, 3, 4}))
	require.NoError(t, idx.Add(2, []float32{4, 3, 2, 1}))
	require.NoError(t, idx.Save())

	reloaded, err := Open(path, 4)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), reloaded.Len())

	results, err := reloaded.Search([]float32{1, 2, 3, 4}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].ID)
}

func TestOpenMissingFileReturnsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.bin")
	idx, err := Open(path, 8)
	require.NoError(t, err)
	assert.True(t, idx.IsEmpty())
}

func TestOpenDimensionMismatchStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.bin")

	idx, err := Open(path, 4)
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, []float32{1, 2, 3, 4}))
	require.NoError(t, idx.Save())

	mismatched, err := Open(path, 8)
	require.NoError(t, err)
	assert.True(t, mismatched.IsEmpty())
}

func TestRemoveBatch(t *testing.T) {
	idx := InMemory(2)
	require.NoError(t, idx.Add(1, []float32{1, 0}))
	require.NoError(t, idx.Add(2, []float32{0, 1}))
	idx.RemoveBatch([]uint64{1, 2})
	assert.Equal(t, 0, idx.Len())
}
