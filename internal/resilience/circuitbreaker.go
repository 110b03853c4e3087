// Package resilience provides circuit breaker and provider failover
// primitives for the backend clients: transcription and speech synthesis go
// over the radio from a service van, and a flapping backend must not stall
// the technician's workflow.
//
// The central type is [Breaker], a three-state circuit breaker
// (closed → open → half-open). [FallbackChain] composes multiple instances
// of a provider type with per-entry breakers so a failing primary is
// bypassed in favour of healthy fallbacks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] when the breaker is open and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker is open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards all calls.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets a small number of probe calls through to decide
	// whether to close or re-open.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker]. Zero values are replaced
// with defaults by [NewBreaker].
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// TripAfter is the number of consecutive failures before the breaker
	// opens. Default: 5.
	TripAfter int

	// Cooldown is how long the breaker stays open before probing again.
	// Default: 30s.
	Cooldown time.Duration

	// Probes is how many half-open calls must succeed to close the breaker.
	// Default: 3.
	Probes int
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name      string
	tripAfter int
	cooldown  time.Duration
	probes    int

	mu         sync.Mutex
	state      BreakerState
	failures   int
	openedAt   time.Time
	probeCalls int
	probeFails int
}

// NewBreaker creates a [Breaker] from cfg, filling defaults for zero values.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:      cfg.Name,
		tripAfter: cfg.TripAfter,
		cooldown:  cfg.Cooldown,
		probes:    cfg.Probes,
		state:     BreakerClosed,
	}
}

// Do runs fn if the breaker allows it. While open it returns
// [ErrBreakerOpen] without calling fn; after the cooldown a limited number
// of probe calls pass through.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probeCalls = 0
		b.probeFails = 0
		slog.Info("breaker probing after cooldown", "name", b.name)

	case BreakerHalfOpen:
		if b.probeCalls >= b.probes {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	probing := b.state == BreakerHalfOpen
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = time.Now()

	if probing {
		// A single failed probe re-opens.
		b.probeFails++
		b.state = BreakerOpen
		b.failures = b.tripAfter
		slog.Warn("breaker re-opened after failed probe", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.tripAfter {
		b.state = BreakerOpen
		slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if !probing {
		b.failures = 0
		return
	}
	if b.probeCalls-b.probeFails >= b.probes {
		b.state = BreakerClosed
		b.failures = 0
		b.probeCalls = 0
		b.probeFails = 0
		slog.Info("breaker closed after successful probes", "name", b.name)
	}
}

// State returns the current breaker state. An open breaker whose cooldown
// has elapsed reports half-open; the actual transition happens on the next
// [Breaker.Do].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probeCalls = 0
	b.probeFails = 0
	slog.Info("breaker manually reset", "name", b.name)
}
