package llm

import (
	"sync"
	"time"
)

// HealthState tracks per-provider call outcomes for the lifetime of the
// process. It is shared across requests and guarded by a mutex; counters
// only grow, except through the explicit Reset used in test setup.
type HealthState struct {
	mu    sync.Mutex
	stats map[string]*providerStats
}

type providerStats struct {
	successes    int
	failures     int
	totalLatency time.Duration
	lastError    string
	lastErrorAt  time.Time
}

// StatsSnapshot is a read-only copy of one provider's counters.
type StatsSnapshot struct {
	Successes    int
	Failures     int
	TotalLatency time.Duration
	LastError    string
	LastErrorAt  time.Time
}

// NewHealthState creates an empty health state.
func NewHealthState() *HealthState {
	return &HealthState{stats: make(map[string]*providerStats)}
}

func (h *HealthState) get(name string) *providerStats {
	s, ok := h.stats[name]
	if !ok {
		s = &providerStats{}
		h.stats[name] = s
	}
	return s
}

// RecordSuccess registers a successful call with its latency.
func (h *HealthState) RecordSuccess(name string, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.get(name)
	s.successes++
	s.totalLatency += latency
}

// RecordFailure registers a failed call with its error message and latency.
func (h *HealthState) RecordFailure(name string, errMsg string, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.get(name)
	s.failures++
	s.totalLatency += latency
	s.lastError = errMsg
	s.lastErrorAt = time.Now()
}

// LastFailureAt returns when the provider last failed, or a zero time if it
// never has.
func (h *HealthState) LastFailureAt(name string) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.get(name).lastErrorAt
}

// Snapshot returns a copy of the provider's counters.
func (h *HealthState) Snapshot(name string) StatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.get(name)
	return StatsSnapshot{
		Successes:    s.successes,
		Failures:     s.failures,
		TotalLatency: s.totalLatency,
		LastError:    s.lastError,
		LastErrorAt:  s.lastErrorAt,
	}
}

// SuccessRate returns successes / total attempts for the provider, defaulting
// to 1.0 when no attempts were made.
func (s StatsSnapshot) SuccessRate() float64 {
	total := s.Successes + s.Failures
	if total == 0 {
		return 1.0
	}
	return float64(s.Successes) / float64(total)
}

// AvgLatency returns the mean latency across all attempts, or 0 with no
// attempts.
func (s StatsSnapshot) AvgLatency() time.Duration {
	total := s.Successes + s.Failures
	if total == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(total)
}

// Reset clears all counters. Intended for test setup only.
func (h *HealthState) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = make(map[string]*providerStats)
}

// markFailureAt backdates the provider's last failure. Test helper for
// cooldown expiry scenarios.
func (h *HealthState) markFailureAt(name string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.get(name).lastErrorAt = at
}
