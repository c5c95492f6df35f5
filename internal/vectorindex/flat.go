// Package vectorindex implements the flat, in-memory cosine-similarity
// vector index: a map from chunk id to L2-normalised embedding,
// with atomic disk persistence.
//
// The on-disk layout is a length-prefixed binary file
// (dimensions, then (id, vector) entries) written atomically via a
// temp file and rename.
package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Index is a flat cosine-similarity vector index over chunk embeddings.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	vectors    map[uint64][]float32
	path       string
}

// Open loads an index from path if it exists, otherwise returns an
// empty index bound to path for future Save calls. A corrupt or
// dimension-mismatched file is treated as absent: the index starts
// empty and the caller is expected to log a warning.
func Open(path string, dimensions int) (*Index, error) {
	idx := &Index{
		dimensions: dimensions,
		vectors:    make(map[uint64][]float32),
		path:       path,
	}
	if path == "" {
		return idx, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("vectorindex: stat %s: %w", path, err)
	}
	if err := idx.loadFromDisk(); err != nil {
		// Corrupt or mismatched on-disk state: start empty rather than fail.
		idx.vectors = make(map[uint64][]float32)
	}
	return idx, nil
}

// InMemory returns an index with no backing file.
func InMemory(dimensions int) *Index {
	return &Index{dimensions: dimensions, vectors: make(map[uint64][]float32)}
}

// Dimensions returns the fixed vector dimension D.
func (idx *Index) Dimensions() int { return idx.dimensions }

// Len returns the number of vectors currently held.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// IsEmpty reports whether the index holds no vectors.
func (idx *Index) IsEmpty() bool { return idx.Len() == 0 }

// Add L2-normalises and inserts v under id, replacing any existing
// vector for that id. Returns an error if len(v) != Dimensions().
func (idx *Index) Add(id uint64, v []float32) error {
	if len(v) != idx.dimensions {
		return fmt.Errorf("vectorindex: dimension mismatch: got %d want %d", len(v), idx.dimensions)
	}
	normalized := append([]float32(nil), v...)
	L2Normalize(normalized)
	idx.mu.Lock()
	idx.vectors[id] = normalized
	idx.mu.Unlock()
	return nil
}

// AddBatch adds multiple vectors; it stops and returns the first error.
func (idx *Index) AddBatch(ids []uint64, vs [][]float32) error {
	if len(ids) != len(vs) {
		return fmt.Errorf("vectorindex: ids/vectors length mismatch")
	}
	for i := range ids {
		if err := idx.Add(ids[i], vs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the vector for id, if present.
func (idx *Index) Remove(id uint64) {
	idx.mu.Lock()
	delete(idx.vectors, id)
	idx.mu.Unlock()
}

// RemoveBatch deletes vectors for all ids.
func (idx *Index) RemoveBatch(ids []uint64) {
	idx.mu.Lock()
	for _, id := range ids {
		delete(idx.vectors, id)
	}
	idx.mu.Unlock()
}

// Clear removes every vector, leaving the index empty but still bound
// to its backing path for a subsequent Save.
func (idx *Index) Clear() {
	idx.mu.Lock()
	idx.vectors = make(map[uint64][]float32)
	idx.mu.Unlock()
}

// Result is one ranked hit from Search.
type Result struct {
	ID         uint64
	Similarity float32
}

// Search returns the top-k ids by cosine similarity to query, sorted
// descending. query must be of length Dimensions().
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("vectorindex: query dimension mismatch: got %d want %d", len(query), idx.dimensions)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		results = append(results, Result{ID: id, Similarity: dotProduct(query, v)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// L2Normalize normalises v in place. A zero vector is left unchanged.
func L2Normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	// Already unit length to float32 precision: leave it, so normalising
	// twice gives the same vector as normalising once.
	if math.Abs(sumSq-1) < 1e-6 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}

const binaryMagic uint32 = 0x4f4d4e56 // "OMNV"

// Save atomically persists the index: write to "<path>.tmp", then
// rename onto the target. On rename failure the temp file is removed
// and the IO error is surfaced; the previous on-disk version, if any,
// is left intact.
func (idx *Index) Save() error {
	if idx.path == "" {
		return fmt.Errorf("vectorindex: save called on an in-memory-only index")
	}
	tmpPath := idx.path + ".tmp"
	if err := idx.writeTo(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, idx.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("vectorindex: rename %s -> %s: %w", tmpPath, idx.path, err)
	}
	return nil
}

func (idx *Index) writeTo(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("vectorindex: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("vectorindex: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := binary.Write(w, binary.LittleEndian, binaryMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(idx.dimensions)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(idx.vectors))); err != nil {
		return err
	}
	for id, v := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return err
		}
		for _, x := range v {
			if err := binary.Write(w, binary.LittleEndian, x); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func (idx *Index) loadFromDisk() error {
	f, err := os.Open(idx.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != binaryMagic {
		return fmt.Errorf("vectorindex: bad magic")
	}

	var dims uint64
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return err
	}
	if int(dims) != idx.dimensions {
		return fmt.Errorf("vectorindex: dimension mismatch on load: file=%d want=%d", dims, idx.dimensions)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}

	vectors := make(map[uint64][]float32, count)
	for i := uint64(0); i < count; i++ {
		var id uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		v := make([]float32, dims)
		for d := range v {
			if err := binary.Read(r, binary.LittleEndian, &v[d]); err != nil {
				if err == io.EOF {
					return fmt.Errorf("vectorindex: truncated file")
				}
				return err
			}
		}
		vectors[id] = v
	}

	idx.vectors = vectors
	return nil
}
