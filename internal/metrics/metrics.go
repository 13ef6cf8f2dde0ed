// Package metrics implements the per-(provider,tool) performance store and
// the routing score function.
package metrics

import (
	"sync"
	"time"
)

// key identifies a metrics row. Tool names are always unqualified.
type key struct {
	provider string
	tool     string
}

// Snapshot is an immutable view of one provider/tool's performance.
type Snapshot struct {
	TotalCalls    int64
	FailureCount  int64
	SuccessRate   float64
	AvgResponseMs float64
	LastUsed      time.Time
}

type entry struct {
	totalCalls    int64
	failureCount  int64
	avgResponseMs float64
	lastUsed      time.Time
}

func (e entry) snapshot() Snapshot {
	rate := 1.0
	if e.totalCalls > 0 {
		rate = float64(e.totalCalls-e.failureCount) / float64(e.totalCalls)
	}
	return Snapshot{
		TotalCalls:    e.totalCalls,
		FailureCount:  e.failureCount,
		SuccessRate:   rate,
		AvgResponseMs: e.avgResponseMs,
		LastUsed:      e.lastUsed,
	}
}

// Store is a concurrency-safe in-memory performance metrics table. Entries
// are created lazily on first access and survive provider disconnection;
// nothing here ever deletes a row.
type Store struct {
	mu      sync.Mutex
	entries map[key]*entry
	now     func() time.Time
}

// New creates an empty metrics store.
func New() *Store {
	return &Store{
		entries: make(map[key]*entry),
		now:     time.Now,
	}
}

// Record updates the counters for (provider, tool) after one completed
// invocation. success is false for a failed call; elapsed is the call's
// wall-clock duration.
func (s *Store) Record(provider, tool string, success bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{provider, tool}
	e := s.entries[k]
	if e == nil {
		e = &entry{lastUsed: s.now()}
		s.entries[k] = e
	}

	e.totalCalls++
	if !success {
		e.failureCount++
	}
	e.lastUsed = s.now()

	elapsedMs := float64(elapsed.Microseconds()) / 1000
	e.avgResponseMs += (elapsedMs - e.avgResponseMs) / float64(e.totalCalls)
}

// Get returns the current snapshot for (provider, tool), or the neutral
// zero-call snapshot if the pair has never been recorded.
func (s *Store) Get(provider, tool string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key{provider, tool}]
	if !ok {
		return entry{lastUsed: s.now()}.snapshot()
	}
	return e.snapshot()
}

// All returns every recorded (provider,tool) snapshot, for meta-tools that
// need an overview (analyze_usage, optimize_routing).
func (s *Store) All() map[[2]string]Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[[2]string]Snapshot, len(s.entries))
	for k, e := range s.entries {
		out[[2]string{k.provider, k.tool}] = e.snapshot()
	}
	return out
}

// Score returns the routing score in [0,1] for (provider, tool), per the
// weighted success/latency/recency formula. A never-called pair is
// neutral (0.5).
func (s *Store) Score(provider, tool string) float64 {
	snap := s.Get(provider, tool)
	return Score(snap, s.now())
}

// Score computes the weighted routing score for a snapshot taken "now".
// Exposed standalone so callers that already hold a Snapshot (e.g. from
// All()) don't need to re-read the store.
func Score(snap Snapshot, now time.Time) float64 {
	if snap.TotalCalls == 0 {
		return 0.5
	}

	responseScore := 1 - snap.AvgResponseMs/10000
	if responseScore < 0 {
		responseScore = 0
	}

	recencyScore := recency(now.Sub(snap.LastUsed))

	return 0.5*snap.SuccessRate + 0.3*responseScore + 0.2*recencyScore
}

func recency(age time.Duration) float64 {
	switch {
	case age < time.Hour:
		return 1.0
	case age < 24*time.Hour:
		return 0.8
	case age < 168*time.Hour:
		return 0.6
	default:
		return 0.4
	}
}
