package resilience

import (
	"sync"
	"time"

	perr "authrelay/internal/platform/errors"
	"authrelay/internal/platform/logger"
)

// Phase is the breaker state machine phase
type Phase uint8

// Breaker phases
const (
	PhaseClosed Phase = iota
	PhaseOpen
	PhaseHalfOpen
)

// String returns the wire name for a phase
func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpen:
		return "open"
	case PhaseHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerOptions tunes the failure-tracking gate
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the breaker
	FailureThreshold int
	// Cooldown is how long the breaker stays open before admitting probes
	Cooldown time.Duration
	// HalfOpenProbes bounds concurrent probe calls while half-open
	HalfOpenProbes int
}

// CircuitState is a snapshot of breaker health for diagnostics
type CircuitState struct {
	Phase               Phase     `json:"-"`
	PhaseName           string    `json:"phase"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
	ProbesInFlight      int       `json:"probes_in_flight,omitempty"`
}

// Breaker is the process-wide circuit breaker guarding the authority call
// path. One instance per process, injected into the orchestrator; all
// transitions happen under a single mutex
type Breaker struct {
	mu    sync.Mutex
	opts  BreakerOptions
	phase Phase

	consecutiveFailures int
	lastFailureAt       time.Time
	probesInFlight      int

	log logger.Logger
	now func() time.Time // seam for tests
}

// NewBreaker builds a Breaker with defaults applied
func NewBreaker(opts BreakerOptions) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.HalfOpenProbes <= 0 {
		opts.HalfOpenProbes = 1
	}
	return &Breaker{
		opts: opts,
		log:  *logger.Named("breaker"),
		now:  time.Now,
	}
}

// Do runs fn behind the breaker. While open and within cooldown it fails
// fast with a CircuitOpen error and fn is never invoked. Only failures a
// retry could cure count against the breaker: an authority that answers
// with a rejection is healthy
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err == nil || !perr.Retryable(err))
	return err
}

// State returns a snapshot of the breaker for health reporting
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	// surface the pending open->half-open transition without mutating
	phase := b.phase
	if phase == PhaseOpen && b.now().Sub(b.lastFailureAt) >= b.opts.Cooldown {
		phase = PhaseHalfOpen
	}
	return CircuitState{
		Phase:               phase,
		PhaseName:           phase.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureAt:       b.lastFailureAt,
		ProbesInFlight:      b.probesInFlight,
	}
}

// admit decides whether a call may proceed and accounts half-open probes
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhaseClosed:
		return nil
	case PhaseOpen:
		if b.now().Sub(b.lastFailureAt) < b.opts.Cooldown {
			return perr.CircuitOpenf("authority circuit open")
		}
		b.phase = PhaseHalfOpen
		b.probesInFlight = 0
		b.log.Info().Msg("breaker half-open, admitting probes")
		fallthrough
	case PhaseHalfOpen:
		if b.probesInFlight >= b.opts.HalfOpenProbes {
			return perr.CircuitOpenf("authority circuit half-open, probe in flight")
		}
		b.probesInFlight++
		return nil
	default:
		return nil
	}
}

// record feeds a call outcome back into the state machine
func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhaseHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		if ok {
			b.phase = PhaseClosed
			b.consecutiveFailures = 0
			b.log.Info().Msg("breaker closed after successful probe")
			return
		}
		b.phase = PhaseOpen
		b.lastFailureAt = b.now()
		b.log.Warn().Msg("breaker reopened after failed probe")
	case PhaseClosed:
		if ok {
			b.consecutiveFailures = 0
			return
		}
		b.consecutiveFailures++
		b.lastFailureAt = b.now()
		if b.consecutiveFailures >= b.opts.FailureThreshold {
			b.phase = PhaseOpen
			b.log.Warn().Int("failures", b.consecutiveFailures).Msg("breaker opened")
		}
	case PhaseOpen:
		if !ok {
			b.lastFailureAt = b.now()
		}
	}
}
