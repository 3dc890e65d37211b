package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/mixcore/internal/logging"
)

// SyntheticClockRealm is a collection of synthetic clocks sharing a
// synthetic monotonic timeline. The realm's now starts at zero and moves
// only when a test or driver calls AdvanceTo or AdvanceBy, so everything
// timed against it is fully deterministic.
//
// Clocks keep a reference to their realm; the realm holds no clock
// references, so dropping a clock handle releases it independently of
// the realm.
type SyntheticClockRealm struct {
	logger *slog.Logger

	mu  sync.Mutex
	now int64
}

// NewSyntheticClockRealm creates a realm with now() == 0.
func NewSyntheticClockRealm() *SyntheticClockRealm {
	return &SyntheticClockRealm{
		logger: logging.ForService("clock"),
	}
}

// Now returns the realm's synthetic monotonic time in nanoseconds.
func (r *SyntheticClockRealm) Now() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// AdvanceTo moves the synthetic monotonic timeline to monoNow, which must
// be strictly after the current time. Panics otherwise: a backwards or
// stalled advance means the driving code has broken its own ordering and
// every timed result after that point would be silently wrong.
func (r *SyntheticClockRealm) AdvanceTo(monoNow int64) {
	r.mu.Lock()
	if monoNow <= r.now {
		now := r.now
		r.mu.Unlock()
		panic(fmt.Sprintf("clock: AdvanceTo(%d) does not move past current time %d", monoNow, now))
	}
	from := r.now
	r.now = monoNow
	r.mu.Unlock()

	r.logger.Log(context.Background(), logging.LevelTrace, "synthetic realm advanced",
		"from_ns", from,
		"to_ns", monoNow)
}

// AdvanceBy moves the synthetic monotonic timeline forward by d, which
// must be positive.
func (r *SyntheticClockRealm) AdvanceBy(d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("clock: AdvanceBy(%v) must advance by a positive duration", d))
	}
	r.mu.Lock()
	from := r.now
	r.now += int64(d)
	to := r.now
	r.mu.Unlock()

	r.logger.Log(context.Background(), logging.LevelTrace, "synthetic realm advanced",
		"from_ns", from,
		"to_ns", to)
}

// CreateClock creates a synthetic clock in this realm. toClockMono maps
// the clock's reference time to the realm's monotonic time; pass
// Identity() for a clock that starts in lockstep with the realm.
func (r *SyntheticClockRealm) CreateClock(name string, domain uint32, adjustable bool, toClockMono TimelineFunction) *SyntheticClock {
	return &SyntheticClock{
		name:        name,
		koid:        allocateKoid(),
		domain:      domain,
		adjustable:  adjustable,
		realm:       r,
		toClockMono: toClockMono,
	}
}

// SyntheticClock is a clock whose reference timeline is defined relative
// to a SyntheticClockRealm's monotonic timeline. It implements Clock.
type SyntheticClock struct {
	name       string
	koid       uint64
	domain     uint32
	adjustable bool
	realm      *SyntheticClockRealm

	mu          sync.Mutex
	toClockMono TimelineFunction
	generation  int64
}

var _ Clock = (*SyntheticClock)(nil)

func (c *SyntheticClock) Name() string { return c.name }

func (c *SyntheticClock) Koid() uint64 { return c.koid }

func (c *SyntheticClock) Domain() uint32 { return c.domain }

func (c *SyntheticClock) Adjustable() bool { return c.adjustable }

// Realm returns the realm this clock lives in.
func (c *SyntheticClock) Realm() *SyntheticClockRealm { return c.realm }

// Now returns the clock's reference time at the realm's current monotonic
// time.
func (c *SyntheticClock) Now() int64 {
	snap := c.ToClockMonoSnapshot()
	return snap.ToClockMono.ApplyInverse(c.realm.Now())
}

func (c *SyntheticClock) ToClockMonoSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ToClockMono: c.toClockMono,
		Generation:  c.generation,
	}
}

// SetRate gives the clock a new rate of (1e6 + ppm) reference nanoseconds
// per 1e6 monotonic nanoseconds, continuous at the current time. Panics
// on a non-adjustable clock or a ppm outside the platform envelope.
func (c *SyntheticClock) SetRate(ppm int32) {
	if !c.adjustable {
		panic(fmt.Sprintf("clock: SetRate on non-adjustable clock %q", c.name))
	}
	if ppm < -RateAdjustmentLimitPPM || ppm > RateAdjustmentLimitPPM {
		panic(fmt.Sprintf("clock: SetRate(%d) outside [-%d, +%d] ppm", ppm, RateAdjustmentLimitPPM, RateAdjustmentLimitPPM))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	monoNow := c.realm.Now()
	refNow := c.toClockMono.ApplyInverse(monoNow)
	c.toClockMono = NewTimelineFunction(monoNow, refNow, 1, 1).WithRateAdjustment(ppm)
	c.generation++
}

// ReadOnlyClock returns a duplicate handle on the same clock that cannot
// adjust it. Synthetic clocks always support this.
func (c *SyntheticClock) ReadOnlyClock() (Clock, bool) {
	return &readOnlyClock{inner: c}, true
}

// readOnlyClock is a non-adjustable duplicate handle. It shares the
// underlying clock, so rate changes made through the original handle are
// visible through it.
type readOnlyClock struct {
	inner Clock
}

var _ Clock = (*readOnlyClock)(nil)

func (c *readOnlyClock) Name() string { return c.inner.Name() }

func (c *readOnlyClock) Koid() uint64 { return c.inner.Koid() }

func (c *readOnlyClock) Domain() uint32 { return c.inner.Domain() }

func (c *readOnlyClock) Adjustable() bool { return false }

func (c *readOnlyClock) Now() int64 { return c.inner.Now() }

func (c *readOnlyClock) ToClockMonoSnapshot() Snapshot { return c.inner.ToClockMonoSnapshot() }

func (c *readOnlyClock) SetRate(ppm int32) {
	panic(fmt.Sprintf("clock: SetRate on read-only handle of clock %q", c.inner.Name()))
}

func (c *readOnlyClock) ReadOnlyClock() (Clock, bool) { return c, true }
