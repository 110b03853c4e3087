package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackChain] failed or
// had an open breaker.
var ErrAllFailed = errors.New("resilience: all providers failed")

// chainEntry pairs a provider with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackChain wraps a primary and zero or more fallback instances of the
// same provider type. Entries are tried in registration order; an entry with
// an open breaker is skipped.
//
// FallbackChain is safe for concurrent use once assembled. Add all entries
// before the first call.
type FallbackChain[T any] struct {
	entries    []chainEntry[T]
	breakerCfg BreakerConfig
}

// NewFallbackChain creates a chain with primary as the first entry. The
// breaker config is cloned per entry, with the entry name as the breaker
// name.
func NewFallbackChain[T any](primary T, primaryName string, cfg BreakerConfig) *FallbackChain[T] {
	fc := &FallbackChain[T]{breakerCfg: cfg}
	fc.Add(primaryName, primary)
	return fc
}

// Add appends a fallback provider tried after all earlier entries.
func (fc *FallbackChain[T]) Add(name string, value T) {
	cfg := fc.breakerCfg
	cfg.Name = name
	fc.entries = append(fc.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(cfg),
	})
}

// Do tries fn against each entry until one succeeds. Returns [ErrAllFailed]
// wrapping the last error when every entry fails.
func (fc *FallbackChain[T]) Do(fn func(T) error) error {
	_, err := DoWithResult(fc, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// DoWithResult tries fn against each entry until one succeeds, returning the
// result. A package-level function because Go does not support method-level
// type parameters.
func DoWithResult[T any, R any](fc *FallbackChain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fc.entries {
		entry := &fc.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
