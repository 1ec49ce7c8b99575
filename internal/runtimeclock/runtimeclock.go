// Package runtimeclock abstracts the consumer's notion of time so that
// tests can run a poll loop a fixed number of iterations without an actual
// wall-clock wait, while production uses real sleeps.
package runtimeclock

import (
	"sync/atomic"
	"time"
)

// RunTime is consulted by the consumer once per iteration: Sleep pauses for
// the requested duration (or a substitute notion of pausing), and
// ShouldContinue reports whether another iteration should run.
type RunTime interface {
	Sleep(d time.Duration)
	ShouldContinue() bool
}

// SubstituteRunTime is the deterministic test double: it never actually
// sleeps and caps the number of iterations a consumer will run via a
// saturating remaining-run budget, so a poll loop under test terminates on
// its own after a known number of ticks instead of running forever.
type SubstituteRunTime struct {
	remaining atomic.Int64
	sleeps    atomic.Int64
}

// NewSubstituteRunTime builds a RunTime that allows exactly runLimit calls
// to ShouldContinue to return true before reporting false on every
// subsequent call. A runLimit of 0 means ShouldContinue never returns true.
func NewSubstituteRunTime(runLimit uint64) *SubstituteRunTime {
	rt := &SubstituteRunTime{}
	rt.remaining.Store(int64(runLimit))
	return rt
}

// Sleep records that a sleep was requested but does not block.
func (rt *SubstituteRunTime) Sleep(_ time.Duration) {
	rt.sleeps.Add(1)
}

// SleepCount reports how many times Sleep has been called.
func (rt *SubstituteRunTime) SleepCount() uint64 {
	return uint64(rt.sleeps.Load())
}

// ShouldContinue consumes one unit of the remaining run budget and reports
// whether it was available. Once the budget reaches zero it saturates
// there; it never goes negative and never flips back to true.
func (rt *SubstituteRunTime) ShouldContinue() bool {
	for {
		current := rt.remaining.Load()
		if current <= 0 {
			return false
		}
		if rt.remaining.CompareAndSwap(current, current-1) {
			return true
		}
	}
}

// SystemRunTime is the production RunTime: Sleep blocks for the requested
// duration, and ShouldContinue allows another iteration unless a run-limit
// has been installed via SetRunLimit and its remaining wall-clock budget
// has been exhausted. With no limit set, lifecycle control is left
// entirely to the consumer's own active flag, per spec.md §4.5.
type SystemRunTime struct {
	limited   atomic.Bool
	remaining atomic.Int64 // nanoseconds remaining, saturating at zero
}

// NewSystemRunTime builds the production RunTime with no run-limit.
func NewSystemRunTime() *SystemRunTime {
	return &SystemRunTime{}
}

// SetRunLimit installs a remaining wall-clock budget: once total has been
// consumed across successive Sleep calls, ShouldContinue reports false. A
// non-positive total clears any limit, restoring the unbounded default.
func (rt *SystemRunTime) SetRunLimit(total time.Duration) {
	if total <= 0 {
		rt.limited.Store(false)
		return
	}
	rt.remaining.Store(int64(total))
	rt.limited.Store(true)
}

// Sleep blocks the calling goroutine for d, then, if a run-limit is set,
// subtracts d from the remaining budget, saturating at zero.
func (rt *SystemRunTime) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
	if !rt.limited.Load() {
		return
	}
	for {
		current := rt.remaining.Load()
		next := current - int64(d)
		if next < 0 {
			next = 0
		}
		if rt.remaining.CompareAndSwap(current, next) {
			return
		}
	}
}

// ShouldContinue reports true when no run-limit is set, or the remaining
// budget is still positive; the consumer's active flag governs shutdown
// the rest of the time.
func (rt *SystemRunTime) ShouldContinue() bool {
	if !rt.limited.Load() {
		return true
	}
	return rt.remaining.Load() > 0
}
