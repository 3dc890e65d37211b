package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealmStartsAtZero(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	assert.Equal(t, int64(0), realm.Now())
}

func TestRealmAdvances(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()

	realm.AdvanceTo(1000)
	assert.Equal(t, int64(1000), realm.Now())

	realm.AdvanceBy(time.Microsecond)
	assert.Equal(t, int64(2000), realm.Now())
}

func TestRealmAdvancePreconditions(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	realm.AdvanceTo(1000)

	assert.Panics(t, func() { realm.AdvanceTo(1000) }, "AdvanceTo must move past now")
	assert.Panics(t, func() { realm.AdvanceTo(999) }, "AdvanceTo must not move backwards")
	assert.Panics(t, func() { realm.AdvanceBy(0) }, "AdvanceBy must be positive")
	assert.Panics(t, func() { realm.AdvanceBy(-time.Nanosecond) })

	// The failed advances must not have moved time.
	assert.Equal(t, int64(1000), realm.Now())
}

func TestClockFollowsRealm(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	c := realm.CreateClock("ref", DomainMonotonic, false, Identity())

	assert.Equal(t, int64(0), c.Now())

	realm.AdvanceBy(time.Millisecond)
	assert.Equal(t, int64(1_000_000), c.Now())

	realm.AdvanceBy(time.Millisecond)
	assert.Equal(t, int64(2_000_000), c.Now())
}

func TestClockWithOffsetTransform(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	realm.AdvanceTo(1000)

	// The clock reads zero when the realm's monotonic time is 1000.
	c := realm.CreateClock("offset", DomainExternal, false, NewTimelineFunction(1000, 0, 1, 1))
	assert.Equal(t, int64(0), c.Now())

	realm.AdvanceTo(1500)
	assert.Equal(t, int64(500), c.Now())

	// Consistency with the snapshot transform.
	snap := c.ToClockMonoSnapshot()
	assert.Equal(t, c.Now(), snap.ToClockMono.ApplyInverse(realm.Now()))
}

func TestSetRateContinuity(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	c := realm.CreateClock("adjustable", DomainExternal, true, Identity())

	realm.AdvanceTo(1_000_000)
	require.Equal(t, int64(1_000_000), c.Now())

	// Speeding the clock up must not move its current reading.
	c.SetRate(1000)
	assert.Equal(t, int64(1_000_000), c.Now(), "SetRate is continuous at the adjustment time")

	// After 1ms of monotonic time the clock has gained 1000ppm.
	realm.AdvanceBy(time.Millisecond)
	assert.Equal(t, int64(2_001_000), c.Now())

	// Slowing down is also continuous and absolute, not cumulative.
	c.SetRate(-1000)
	before := c.Now()
	realm.AdvanceBy(time.Millisecond)
	assert.Equal(t, before+999_000, c.Now())
}

func TestSetRatePreconditions(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()

	fixedRate := realm.CreateClock("fixed", DomainMonotonic, false, Identity())
	assert.Panics(t, func() { fixedRate.SetRate(10) }, "SetRate on non-adjustable clock")

	adjustable := realm.CreateClock("adj", DomainExternal, true, Identity())
	assert.Panics(t, func() { adjustable.SetRate(RateAdjustmentLimitPPM + 1) })
	assert.Panics(t, func() { adjustable.SetRate(-RateAdjustmentLimitPPM - 1) })
	assert.NotPanics(t, func() { adjustable.SetRate(RateAdjustmentLimitPPM) })
	assert.NotPanics(t, func() { adjustable.SetRate(-RateAdjustmentLimitPPM) })
}

func TestSnapshotGeneration(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	c := realm.CreateClock("gen", DomainExternal, true, Identity())

	assert.Equal(t, int64(0), c.ToClockMonoSnapshot().Generation)

	realm.AdvanceTo(10)
	c.SetRate(100)
	assert.Equal(t, int64(1), c.ToClockMonoSnapshot().Generation)

	c.SetRate(100)
	assert.Equal(t, int64(2), c.ToClockMonoSnapshot().Generation, "every adjustment bumps the generation")
}

func TestReadOnlyClock(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	c := realm.CreateClock("shared", DomainExternal, true, Identity())

	ro, ok := c.ReadOnlyClock()
	require.True(t, ok, "synthetic clocks always duplicate read-only")

	assert.Equal(t, c.Koid(), ro.Koid(), "duplicate handle keeps the clock identity")
	assert.Equal(t, c.Name(), ro.Name())
	assert.Equal(t, c.Domain(), ro.Domain())
	assert.False(t, ro.Adjustable())
	assert.Panics(t, func() { ro.SetRate(1) })

	// Rate changes through the original handle are visible to the duplicate.
	realm.AdvanceTo(1_000_000)
	c.SetRate(1000)
	realm.AdvanceBy(time.Millisecond)
	assert.Equal(t, c.Now(), ro.Now())
	assert.Equal(t, c.ToClockMonoSnapshot(), ro.ToClockMonoSnapshot())

	// Duplicating a read-only handle yields a read-only handle.
	ro2, ok := ro.ReadOnlyClock()
	require.True(t, ok)
	assert.False(t, ro2.Adjustable())
}

func TestKoidsAreUnique(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	a := realm.CreateClock("a", DomainMonotonic, false, Identity())
	b := realm.CreateClock("b", DomainMonotonic, false, Identity())

	assert.NotEqual(t, InvalidKoid, a.Koid())
	assert.NotEqual(t, InvalidKoid, b.Koid())
	assert.NotEqual(t, a.Koid(), b.Koid())
}

func TestClocksShareRealmTime(t *testing.T) {
	t.Parallel()

	realm := NewSyntheticClockRealm()
	a := realm.CreateClock("a", DomainMonotonic, false, Identity())
	b := realm.CreateClock("b", DomainMonotonic, false, Identity())

	realm.AdvanceBy(480 * time.Millisecond)
	assert.Equal(t, a.Now(), b.Now(), "same-domain identity clocks never drift")
	assert.Equal(t, realm.Now(), a.Now())
}
