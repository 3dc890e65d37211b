// Package clock provides the reference clock abstraction for the mixing
// pipeline: rational affine timeline functions, read and adjust handles
// on clocks, and a fully synthetic clock realm that lets timing-dependent
// code run deterministically with no wall-clock delay.
package clock

import "sync/atomic"

// Clock domains. Clocks in the monotonic domain track system monotonic
// time by construction. DomainExternal marks clocks with no rate
// relationship to any other domain.
const (
	DomainMonotonic uint32 = 0
	DomainExternal  uint32 = 0xFFFFFFFF
)

// Snapshot is a point-in-time view of a clock's transform to the
// monotonic timeline. The generation increments whenever the transform
// changes, so cached conversions can detect staleness without re-reading
// the transform.
type Snapshot struct {
	ToClockMono TimelineFunction
	Generation  int64
}

// A Clock is a read handle on a reference clock. Implementations are safe
// for concurrent use.
//
// Now and ToClockMonoSnapshot never block beyond a short critical
// section. SetRate must only be called on clocks that report Adjustable;
// calling it on any other handle is a programmer error and panics.
type Clock interface {
	// Name returns the debug name given at creation.
	Name() string

	// Koid returns a process-unique identity for the underlying clock.
	// Duplicate handles on the same clock share a koid.
	Koid() uint64

	// Domain groups clocks that advance at the same rate. Two clocks in
	// the same domain never drift relative to each other.
	Domain() uint32

	// Adjustable reports whether SetRate may be called on this handle.
	Adjustable() bool

	// Now returns the clock's current reference time in nanoseconds.
	Now() int64

	// ToClockMonoSnapshot returns the current reference-to-monotonic
	// transform and its generation.
	ToClockMonoSnapshot() Snapshot

	// SetRate adjusts the clock rate by ppm parts per million relative to
	// the monotonic timeline, continuous at the current time.
	SetRate(ppm int32)

	// ReadOnlyClock returns a duplicate handle that cannot adjust the
	// clock, or false when the implementation cannot produce one.
	ReadOnlyClock() (Clock, bool)
}

// RateAdjustmentLimitPPM bounds SetRate, matching the platform clock
// envelope.
const RateAdjustmentLimitPPM = 1000

var lastKoid atomic.Uint64

// allocateKoid returns a new process-unique clock identity. Koid zero is
// never allocated, so it can mean "no clock".
func allocateKoid() uint64 {
	return lastKoid.Add(1)
}

// InvalidKoid is the koid of no clock.
const InvalidKoid uint64 = 0
