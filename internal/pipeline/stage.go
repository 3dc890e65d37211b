// Package pipeline implements the pull-model stages a mix graph executes:
// producers that hand out packet views, and mixers that sum them. Stages
// never block and never read the wall clock; the caller drives them once
// per mix period and owns all timing. A single stage must not be advanced
// and read concurrently, callers serialize access per stage.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/mixcore/internal/clock"
	"github.com/tphakala/mixcore/internal/fixed"
)

// PipelineStage is one node of the mix pipeline. Frame positions are
// fractional; Read returns at most one contiguous run per call. Reading
// never consumes data at or after the requested position, so repeating a
// Read there returns the same frames, but it abandons everything before
// it, as if Advance had been called with the same position.
type PipelineStage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Format is the frame layout this stage produces.
	Format() Format

	// ReferenceClockKoid identifies the clock this stage's frame
	// timeline is anchored to.
	ReferenceClockKoid() uint64

	// Advance declares that frames before the given position will never
	// be read again, letting the stage drop buffered data.
	Advance(job *MixJobContext, frame fixed.Fixed)

	// Read returns the first run of frames overlapping
	// [startFrame, startFrame+frameCount). The returned view may start
	// after startFrame (the leading frames have no data) and may be
	// shorter than requested. Returns false when nothing in the range
	// has data. The view is valid until the next Advance past it.
	Read(job *MixJobContext, startFrame fixed.Fixed, frameCount int64) (PacketView, bool)
}

// MixJobContext carries the per-period state shared by every stage a
// single mix job visits: a job id for log correlation, clock snapshots
// taken once at period start so all stages translate time identically,
// and the period bounds.
type MixJobContext struct {
	id          uuid.UUID
	periodStart int64
	period      time.Duration
	clocks      map[uint64]clock.Snapshot
}

// NewMixJobContext snapshots the given clocks and opens a job covering
// one mix period starting at periodStart (reference monotonic
// nanoseconds).
func NewMixJobContext(periodStart int64, period time.Duration, clocks ...clock.Clock) *MixJobContext {
	snaps := make(map[uint64]clock.Snapshot, len(clocks))
	for _, c := range clocks {
		snaps[c.Koid()] = c.ToClockMonoSnapshot()
	}
	return &MixJobContext{
		id:          uuid.New(),
		periodStart: periodStart,
		period:      period,
		clocks:      snaps,
	}
}

// ID returns the job correlation id.
func (c *MixJobContext) ID() uuid.UUID { return c.id }

// PeriodStart returns the reference monotonic time this period begins at.
func (c *MixJobContext) PeriodStart() int64 { return c.periodStart }

// Period returns the length of the mix period.
func (c *MixJobContext) Period() time.Duration { return c.period }

// ClockSnapshot returns the snapshot taken at job creation for the clock
// with the given koid.
func (c *MixJobContext) ClockSnapshot(koid uint64) (clock.Snapshot, bool) {
	s, ok := c.clocks[koid]
	return s, ok
}
