package relay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats tracks monotonic counters for every facade call. One instance per
// process, injected into the relay; all updates are lock-guarded
type Stats struct {
	mu           sync.Mutex
	total        uint64
	success      uint64
	failure      uint64
	perTransport map[Transport]uint64
	perMethod    map[string]uint64

	attempts *prometheus.CounterVec
}

// Snapshot is a point-in-time copy of the counters, safe to hand out
type Snapshot struct {
	Total        uint64            `json:"total"`
	Success      uint64            `json:"success"`
	Failure      uint64            `json:"failure"`
	PerTransport map[string]uint64 `json:"per_transport"`
	PerMethod    map[string]uint64 `json:"per_method"`
}

// NewStats builds the counter set and registers the prometheus view on reg
// (nil reg skips registration, handy in tests)
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		perTransport: make(map[Transport]uint64),
		perMethod:    make(map[string]uint64),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Authentication attempts by transport, method, and outcome.",
			},
			[]string{"transport", "method", "outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(s.attempts)
	}
	return s
}

// record counts one facade call outcome
func (s *Stats) record(transport Transport, method string, ok bool) {
	s.mu.Lock()
	s.total++
	if ok {
		s.success++
	} else {
		s.failure++
	}
	s.perTransport[transport]++
	s.perMethod[method]++
	s.mu.Unlock()

	outcome := "failure"
	if ok {
		outcome = "success"
	}
	s.attempts.WithLabelValues(string(transport), method, outcome).Inc()
}

// Snapshot returns a copy of the counters, never a live reference
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:        s.total,
		Success:      s.success,
		Failure:      s.failure,
		PerTransport: make(map[string]uint64, len(s.perTransport)),
		PerMethod:    make(map[string]uint64, len(s.perMethod)),
	}
	for k, v := range s.perTransport {
		snap.PerTransport[string(k)] = v
	}
	for k, v := range s.perMethod {
		snap.PerMethod[k] = v
	}
	return snap
}
