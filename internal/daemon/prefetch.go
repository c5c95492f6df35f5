package daemon

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"
)

const (
	defaultPrefetchCapacity = 100
	defaultPrefetchTTL      = 5 * time.Minute
)

// PrefetchCache holds precomputed context windows keyed by editor
// state (active file, optionally a symbol), so a `preflight` call for
// a file the IDE already reported open is answered without running
// the retrieval pipeline again. Entries expire after a TTL and are
// invalidated when the file is reindexed.
type PrefetchCache struct {
	mu       sync.RWMutex
	cache    otter.Cache[string, string]
	capacity int
	ttl      time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPrefetchCache builds a prefetch cache with the given capacity and
// entry TTL; zero values select the defaults.
func NewPrefetchCache(capacity int, ttl time.Duration) *PrefetchCache {
	if capacity <= 0 {
		capacity = defaultPrefetchCapacity
	}
	if ttl <= 0 {
		ttl = defaultPrefetchTTL
	}
	return &PrefetchCache{
		cache:    mustBuildCache(capacity, ttl),
		capacity: capacity,
		ttl:      ttl,
	}
}

func mustBuildCache(capacity int, ttl time.Duration) otter.Cache[string, string] {
	cache, err := otter.MustBuilder[string, string](capacity).WithTTL(ttl).Build()
	if err != nil {
		panic(fmt.Sprintf("daemon: build prefetch cache: %v", err))
	}
	return cache
}

func fileKey(path string) string           { return "file:" + path }
func symbolKey(path, symbol string) string { return "symbol:" + path + "#" + symbol }

// GetFileContext returns the cached context for an active file.
func (p *PrefetchCache) GetFileContext(path string) (string, bool) {
	return p.get(fileKey(path))
}

// PutFileContext stores the rendered context for an active file.
func (p *PrefetchCache) PutFileContext(path, context string) {
	p.put(fileKey(path), context)
}

// GetSymbolContext returns the cached context for a (file, symbol) pair.
func (p *PrefetchCache) GetSymbolContext(path, symbol string) (string, bool) {
	return p.get(symbolKey(path, symbol))
}

// PutSymbolContext stores the rendered context for a (file, symbol) pair.
func (p *PrefetchCache) PutSymbolContext(path, symbol, context string) {
	p.put(symbolKey(path, symbol), context)
}

// InvalidateFile drops the file-level entry for path, called when the
// IDE reports an edit to the file and the cached window may be stale.
// Symbol-level entries for the file are not dropped; they expire by TTL.
func (p *PrefetchCache) InvalidateFile(path string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.cache.Delete(fileKey(path))
}

func (p *PrefetchCache) get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.cache.Get(key)
	if ok {
		p.hits.Add(1)
	} else {
		p.misses.Add(1)
	}
	return v, ok
}

func (p *PrefetchCache) put(key, value string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.cache.Set(key, value)
}

// Clear empties the cache and resets the hit/miss counters.
func (p *PrefetchCache) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Clear()
	p.hits.Store(0)
	p.misses.Store(0)
}

// CacheStats is the `prefetch_stats` payload.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Stats snapshots the cache's hit/miss counters and size.
func (p *PrefetchCache) Stats() CacheStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	hits := p.hits.Load()
	misses := p.misses.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{Hits: hits, Misses: misses, Size: p.cache.Size(), HitRate: rate}
}

// UpdateConfig applies new capacity/TTL knobs, rebuilding the backing
// cache when either changes (the backing cache's shape is fixed at
// build time). Existing entries are discarded on rebuild. Returns
// whether anything changed.
func (p *PrefetchCache) UpdateConfig(capacity *int, ttlSeconds *uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	newCapacity := p.capacity
	if capacity != nil && *capacity > 0 {
		newCapacity = *capacity
	}
	newTTL := p.ttl
	if ttlSeconds != nil && *ttlSeconds > 0 {
		newTTL = time.Duration(*ttlSeconds) * time.Second
	}
	if newCapacity == p.capacity && newTTL == p.ttl {
		return false
	}

	p.cache.Close()
	p.cache = mustBuildCache(newCapacity, newTTL)
	p.capacity = newCapacity
	p.ttl = newTTL
	return true
}
