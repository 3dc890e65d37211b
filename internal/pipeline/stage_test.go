package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mixcore/internal/clock"
)

func TestMixJobContextSnapshotsClocks(t *testing.T) {
	t.Parallel()

	realm := clock.NewSyntheticClockRealm()
	c := realm.CreateClock("capture", clock.DomainMonotonic, true, clock.Identity())
	realm.AdvanceBy(5 * time.Millisecond)

	job := NewMixJobContext(realm.Now(), 10*time.Millisecond, c)

	assert.Equal(t, realm.Now(), job.PeriodStart())
	assert.Equal(t, 10*time.Millisecond, job.Period())

	snap, ok := job.ClockSnapshot(c.Koid())
	require.True(t, ok)
	assert.Equal(t, c.ToClockMonoSnapshot(), snap)

	_, ok = job.ClockSnapshot(clock.InvalidKoid)
	assert.False(t, ok)
}

// A snapshot belongs to the job that took it: rate changes after job
// creation must not leak in.
func TestMixJobContextSnapshotIsStable(t *testing.T) {
	t.Parallel()

	realm := clock.NewSyntheticClockRealm()
	c := realm.CreateClock("adjustable", clock.DomainMonotonic, true, clock.Identity())
	realm.AdvanceBy(time.Millisecond)

	job := NewMixJobContext(realm.Now(), 10*time.Millisecond, c)
	before, ok := job.ClockSnapshot(c.Koid())
	require.True(t, ok)

	c.SetRate(500)

	after, ok := job.ClockSnapshot(c.Koid())
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.NotEqual(t, c.ToClockMonoSnapshot().Generation, after.Generation)
}

func TestMixJobContextIDsAreUnique(t *testing.T) {
	t.Parallel()

	a := NewMixJobContext(0, time.Millisecond)
	b := NewMixJobContext(0, time.Millisecond)
	assert.NotEqual(t, a.ID(), b.ID())
}
