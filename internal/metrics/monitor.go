// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"runtime"
	"sync"
	"time"
)

// PerformanceSnapshot is a point-in-time view of one consolidation run.
type PerformanceSnapshot struct {
	MemoryBytes    uint64   `json:"memory_bytes"`
	Comparisons    uint64   `json:"comparisons"`
	CacheAttempts  uint64   `json:"cache_attempts"`
	CacheHits      uint64   `json:"cache_hits"`
	CacheHitRate   float64  `json:"cache_hit_rate"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
}

// PerformanceMonitor tracks similarity-scoring work for a single
// consolidation run: comparison count, cache effectiveness and wall time.
// It is owned by the run context rather than being process-global, so
// concurrent runs never share counters. All methods are thread-safe.
type PerformanceMonitor struct {
	mu            sync.Mutex
	comparisons   uint64
	cacheAttempts uint64
	cacheHits     uint64
	start         time.Time
	end           time.Time
}

// NewPerformanceMonitor creates a monitor with all counters at zero.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// Reset clears all counters and timestamps.
func (m *PerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comparisons = 0
	m.cacheAttempts = 0
	m.cacheHits = 0
	m.start = time.Time{}
	m.end = time.Time{}
}

// Start marks the beginning of a run.
func (m *PerformanceMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = time.Now()
	m.end = time.Time{}
}

// Stop marks the end of a run.
func (m *PerformanceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.end = time.Now()
}

// RecordComparison counts one similarity computation.
func (m *PerformanceMonitor) RecordComparison() {
	m.mu.Lock()
	m.comparisons++
	m.mu.Unlock()
}

// RecordCacheLookup counts one cache attempt, and a hit when hit is true.
func (m *PerformanceMonitor) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	m.cacheAttempts++
	if hit {
		m.cacheHits++
	}
	m.mu.Unlock()
}

// Snapshot returns the current stats. ElapsedSeconds is nil until the run
// has both a start and an end timestamp. CacheHitRate is 0 with no attempts.
func (m *PerformanceMonitor) Snapshot() PerformanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := PerformanceSnapshot{
		MemoryBytes:   memStats.HeapAlloc,
		Comparisons:   m.comparisons,
		CacheAttempts: m.cacheAttempts,
		CacheHits:     m.cacheHits,
	}
	if m.cacheAttempts > 0 {
		snap.CacheHitRate = float64(m.cacheHits) / float64(m.cacheAttempts)
	}
	if !m.start.IsZero() && !m.end.IsZero() {
		elapsed := m.end.Sub(m.start).Seconds()
		snap.ElapsedSeconds = &elapsed
	}
	return snap
}
