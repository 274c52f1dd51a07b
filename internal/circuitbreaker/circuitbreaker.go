// Package circuitbreaker guards external provider calls with a per-target
// closed/open/half-open breaker so a struggling provider is not hammered by
// every concurrent purchase.
package circuitbreaker

import (
	"sync"
	"time"
)

// State of a target's circuit.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold  int           // consecutive failures before opening
	OpenTimeout       time.Duration // how long the circuit stays open
	HalfOpenSuccesses int           // successes in half-open before closing
}

const (
	defaultFailureThreshold  = 5
	defaultOpenTimeout       = 30 * time.Second
	defaultHalfOpenSuccesses = 2
)

type targetState struct {
	state     State
	failures  int
	successes int
	openUntil time.Time
}

// CircuitBreaker tracks health per named target. Safe for concurrent use.
type CircuitBreaker struct {
	mu      sync.Mutex
	cfg     Config
	targets map[string]*targetState
}

// New creates a CircuitBreaker from cfg.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = defaultHalfOpenSuccesses
	}
	return &CircuitBreaker{cfg: cfg, targets: make(map[string]*targetState)}
}

func (cb *CircuitBreaker) target(name string) *targetState {
	ts, ok := cb.targets[name]
	if !ok {
		ts = &targetState{state: Closed}
		cb.targets[name] = ts
	}
	return ts
}

// Allow reports whether a call to the target may proceed, transitioning an
// expired open circuit to half-open.
func (cb *CircuitBreaker) Allow(name string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.target(name)
	switch ts.state {
	case Open:
		if time.Now().After(ts.openUntil) {
			ts.state = HalfOpen
			ts.successes = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess feeds back a successful call.
func (cb *CircuitBreaker) RecordSuccess(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.target(name)
	switch ts.state {
	case Closed:
		ts.failures = 0
	case HalfOpen:
		ts.successes++
		if ts.successes >= cb.cfg.HalfOpenSuccesses {
			ts.state = Closed
			ts.failures = 0
			ts.successes = 0
		}
	}
}

// RecordFailure feeds back a failed call.
func (cb *CircuitBreaker) RecordFailure(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.target(name)
	switch ts.state {
	case Closed:
		ts.failures++
		if ts.failures >= cb.cfg.FailureThreshold {
			ts.state = Open
			ts.openUntil = time.Now().Add(cb.cfg.OpenTimeout)
		}
	case HalfOpen:
		ts.state = Open
		ts.openUntil = time.Now().Add(cb.cfg.OpenTimeout)
		ts.failures = 0
		ts.successes = 0
	}
}

// StateOf returns the current state without transitioning it.
func (cb *CircuitBreaker) StateOf(name string) State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	ts, ok := cb.targets[name]
	if !ok {
		return Closed
	}
	return ts.state
}
