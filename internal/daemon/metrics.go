package daemon

import (
	"runtime"
	"sort"
	"sync"
)

// maxLatencySamples bounds the sliding window percentile calculations
// draw from; older samples are discarded first.
const maxLatencySamples = 1024

// PerformanceMetrics aggregates search latency and memory usage for
// the `performance_metrics` JSON-RPC method.
type PerformanceMetrics struct {
	mu            sync.Mutex
	latenciesMs   []float64
	totalSearches uint64
	peakHeapBytes uint64
}

// RecordSearch appends one search's latency to the sliding window.
func (m *PerformanceMetrics) RecordSearch(latencyMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalSearches++
	m.latenciesMs = append(m.latenciesMs, latencyMs)
	if len(m.latenciesMs) > maxLatencySamples {
		m.latenciesMs = m.latenciesMs[len(m.latenciesMs)-maxLatencySamples:]
	}
}

// LatencyPercentile returns the p-th percentile (0 < p <= 1) of the
// recorded search latencies in milliseconds, or 0 with no samples.
func (m *PerformanceMetrics) LatencyPercentile(p float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latenciesMs) == 0 {
		return 0
	}
	sorted := make([]float64, len(m.latenciesMs))
	copy(sorted, m.latenciesMs)
	sort.Float64s(sorted)
	idx := int(p*float64(len(sorted))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// TotalSearches returns the number of search calls recorded so far.
func (m *PerformanceMetrics) TotalSearches() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalSearches
}

// CurrentHeapBytes samples the live heap size and folds it into the
// recorded peak.
func (m *PerformanceMetrics) CurrentHeapBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.HeapAlloc > m.peakHeapBytes {
		m.peakHeapBytes = ms.HeapAlloc
	}
	return ms.HeapAlloc
}

// PeakHeapBytes returns the highest heap size observed by
// CurrentHeapBytes since the daemon started.
func (m *PerformanceMetrics) PeakHeapBytes() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakHeapBytes
}
