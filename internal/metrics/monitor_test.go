package metrics

import "testing"

func TestMonitorCounters(t *testing.T) {
	m := NewPerformanceMonitor()

	for i := 0; i < 5; i++ {
		m.RecordComparison()
	}
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)

	snap := m.Snapshot()
	if snap.Comparisons != 5 {
		t.Errorf("comparisons = %d, want 5", snap.Comparisons)
	}
	if snap.CacheAttempts != 3 || snap.CacheHits != 2 {
		t.Errorf("cache attempts/hits = %d/%d, want 3/2", snap.CacheAttempts, snap.CacheHits)
	}
	if got, want := snap.CacheHitRate, 2.0/3.0; got != want {
		t.Errorf("cache hit rate = %f, want %f", got, want)
	}
}

func TestMonitorHitRateWithoutLookups(t *testing.T) {
	snap := NewPerformanceMonitor().Snapshot()
	if snap.CacheHitRate != 0 {
		t.Errorf("hit rate without lookups = %f, want 0", snap.CacheHitRate)
	}
}

func TestMonitorElapsed(t *testing.T) {
	m := NewPerformanceMonitor()
	if m.Snapshot().ElapsedSeconds != nil {
		t.Error("elapsed must be nil before the run starts")
	}

	m.Start()
	if m.Snapshot().ElapsedSeconds != nil {
		t.Error("elapsed must be nil while the run is in flight")
	}

	m.Stop()
	elapsed := m.Snapshot().ElapsedSeconds
	if elapsed == nil {
		t.Fatal("elapsed must be set after stop")
	}
	if *elapsed < 0 {
		t.Errorf("elapsed = %f, want >= 0", *elapsed)
	}
}

func TestMonitorReset(t *testing.T) {
	m := NewPerformanceMonitor()
	m.Start()
	m.RecordComparison()
	m.RecordCacheLookup(true)
	m.Stop()

	m.Reset()
	snap := m.Snapshot()
	if snap.Comparisons != 0 || snap.CacheAttempts != 0 || snap.ElapsedSeconds != nil {
		t.Errorf("reset left state behind: %+v", snap)
	}
}
