package pipeline

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mixcore/internal/fixed"
	"github.com/tphakala/mixcore/internal/observability/metrics"
)

func newTestQueue(t *testing.T) *PacketQueueProducerStage {
	t.Helper()
	return NewPacketQueueProducerStage(PacketQueueConfig{
		Name:               "test-queue",
		Format:             testFormat,
		ReferenceClockKoid: 1,
	})
}

func testJob() *MixJobContext {
	return NewMixJobContext(0, 10*time.Millisecond)
}

// pushFrames pushes a constant-valued packet covering
// [start, start+frames) and returns a pointer to its release counter.
func pushFrames(s *PacketQueueProducerStage, start, frames int64, value float32) *int {
	payload := make([]float32, frames*int64(s.Format().SamplesPerFrame()))
	for i := range payload {
		payload[i] = value
	}
	released := 0
	s.Push(NewPacketView(s.Format(), fixed.FromInt64(start), frames, payload), func() { released++ })
	return &released
}

func TestReadFromEmptyQueue(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()

	assert.True(t, s.Empty())
	_, ok := s.Read(job, fixed.FromInt64(0), 48)
	assert.False(t, ok)
}

func TestPushReadAdvanceFlow(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()
	released := pushFrames(s, 0, 480, 1)

	view, ok := s.Read(job, fixed.FromInt64(0), 48)
	require.True(t, ok)
	assert.Equal(t, fixed.FromInt64(0), view.Start())
	assert.Equal(t, int64(48), view.Length())
	assert.Equal(t, float32(1), view.Payload()[0])

	// Advancing inside the packet keeps it queued.
	s.Advance(job, fixed.FromInt64(48))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, *released)

	s.Advance(job, fixed.FromInt64(480))
	assert.True(t, s.Empty())
	assert.Equal(t, 1, *released)
}

func TestReadIsRepeatable(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()
	released := pushFrames(s, 0, 100, 3)
	pushFrames(s, 100, 100, 4)

	first, ok := s.Read(job, fixed.FromInt64(50), 100)
	require.True(t, ok)
	second, ok := s.Read(job, fixed.FromInt64(50), 100)
	require.True(t, ok)

	assert.Equal(t, first.Start(), second.Start())
	assert.Equal(t, first.Length(), second.Length())
	assert.Equal(t, first.Payload()[0], second.Payload()[0])
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 0, *released)
}

func TestReleaseFiresExactlyOnce(t *testing.T) {
	t.Parallel()

	t.Run("advance", func(t *testing.T) {
		t.Parallel()
		s := newTestQueue(t)
		job := testJob()
		released := pushFrames(s, 0, 100, 0)

		s.Advance(job, fixed.FromInt64(100))
		assert.Equal(t, 1, *released)
		s.Advance(job, fixed.FromInt64(200))
		assert.Equal(t, 1, *released)
	})

	t.Run("read past expired packet", func(t *testing.T) {
		t.Parallel()
		s := newTestQueue(t)
		job := testJob()
		released := pushFrames(s, 0, 100, 0)

		_, ok := s.Read(job, fixed.FromInt64(150), 10)
		assert.False(t, ok)
		assert.Equal(t, 1, *released)

		_, ok = s.Read(job, fixed.FromInt64(150), 10)
		assert.False(t, ok)
		assert.Equal(t, 1, *released)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()
		s := newTestQueue(t)
		released := pushFrames(s, 0, 100, 0)

		s.Clear()
		assert.Equal(t, 1, *released)
		s.Clear()
		assert.Equal(t, 1, *released)
		assert.True(t, s.Empty())
	})

	t.Run("nil release", func(t *testing.T) {
		t.Parallel()
		s := newTestQueue(t)
		job := testJob()
		s.Push(NewPacketView(testFormat, fixed.FromInt64(0), 10, make([]float32, 20)), nil)

		assert.NotPanics(t, func() { s.Advance(job, fixed.FromInt64(10)) })
		assert.True(t, s.Empty())
	})
}

func TestUnderflowReportedOncePerLatePacket(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()

	var reports []time.Duration
	s.SetUnderflowReporter(func(d time.Duration) { reports = append(reports, d) })

	// Packet spans [52, 152) but the reader is already at 100: 48 frames
	// were missed, exactly 1ms at 48kHz.
	pushFrames(s, 52, 100, 1)

	view, ok := s.Read(job, fixed.FromInt64(100), 48)
	require.True(t, ok)
	assert.Equal(t, fixed.FromInt64(100), view.Start())
	assert.Equal(t, int64(48), view.Length())
	require.Len(t, reports, 1)
	assert.Equal(t, time.Millisecond, reports[0])

	// Later reads of the same packet stay quiet.
	_, ok = s.Read(job, fixed.FromInt64(120), 28)
	require.True(t, ok)
	assert.Len(t, reports, 1)

	// A second late packet reports its own gap.
	s.Advance(job, fixed.FromInt64(152))
	pushFrames(s, 160, 96, 2)
	_, ok = s.Read(job, fixed.FromInt64(208), 48)
	require.True(t, ok)
	require.Len(t, reports, 2)
	assert.Equal(t, time.Millisecond, reports[1])
}

func TestReadGapThenPartialPacketReportsOnce(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()

	var reports []time.Duration
	s.SetUnderflowReporter(func(d time.Duration) { reports = append(reports, d) })

	// Packet [90, 130), read [100, 148): ten frames arrived late, and the
	// tail of the request has no data at all. Only the late gap reports.
	pushFrames(s, 90, 40, 1)

	view, ok := s.Read(job, fixed.FromInt64(100), 48)
	require.True(t, ok)
	assert.Equal(t, fixed.FromInt64(100), view.Start())
	assert.Equal(t, int64(30), view.Length())
	require.Len(t, reports, 1)
	assert.Equal(t, testFormat.DurationForFrames(10), reports[0])

	// The uncovered tail is not an underflow, and neither is an empty
	// queue.
	_, ok = s.Read(job, fixed.FromInt64(130), 18)
	assert.False(t, ok)
	assert.Len(t, reports, 1)
}

func TestFuturePacketIsNotUnderflow(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()

	var reports int
	s.SetUnderflowReporter(func(time.Duration) { reports++ })

	pushFrames(s, 120, 100, 1)

	// Request overlaps the packet's head: the view starts late, the
	// leading frames simply have no data yet.
	view, ok := s.Read(job, fixed.FromInt64(100), 48)
	require.True(t, ok)
	assert.Equal(t, fixed.FromInt64(120), view.Start())
	assert.Equal(t, int64(28), view.Length())
	assert.Equal(t, 0, reports)

	// Request entirely before the packet: nothing to return.
	_, ok = s.Read(job, fixed.FromInt64(100), 10)
	assert.False(t, ok)
	assert.Equal(t, 0, reports)
	assert.Equal(t, 1, s.Len())
}

func TestAdvanceDropsOnlyExpiredPackets(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	job := testJob()
	r1 := pushFrames(s, 0, 100, 1)
	r2 := pushFrames(s, 100, 100, 2)
	r3 := pushFrames(s, 200, 100, 3)

	s.Advance(job, fixed.FromInt64(150))
	assert.Equal(t, 1, *r1)
	assert.Equal(t, 0, *r2)
	assert.Equal(t, 0, *r3)
	assert.Equal(t, 2, s.Len())

	s.Advance(job, fixed.FromInt64(300))
	assert.Equal(t, 1, *r2)
	assert.Equal(t, 1, *r3)
	assert.True(t, s.Empty())
}

func TestStrictOrderPush(t *testing.T) {
	t.Parallel()

	s := NewPacketQueueProducerStage(PacketQueueConfig{
		Name:        "ordered",
		Format:      testFormat,
		StrictOrder: true,
	})

	pushFrames(s, 0, 100, 1)
	assert.Panics(t, func() { pushFrames(s, 50, 10, 1) })

	// Back-to-back is fine.
	assert.NotPanics(t, func() { pushFrames(s, 100, 100, 1) })

	// Clear lets the feeder restart its timeline.
	s.Clear()
	assert.NotPanics(t, func() { pushFrames(s, 0, 100, 1) })
}

func TestPushRejectsForeignFormat(t *testing.T) {
	t.Parallel()

	s := newTestQueue(t)
	mono := Format{SampleRate: 48000, Channels: 1}

	assert.Panics(t, func() {
		s.Push(NewPacketView(mono, fixed.FromInt64(0), 10, make([]float32, 10)), nil)
	})
}

// TestMixPeriodScenario drives the queue the way a mix loop does: the
// feeder pushes 10ms packets, the loop reads 1ms periods and advances
// behind itself. Every period must come back full, and each packet must
// release as soon as the loop passes its end.
func TestMixPeriodScenario(t *testing.T) {
	t.Parallel()

	const (
		packetFrames = 480
		periodFrames = 48
		packets      = 10
	)

	s := newTestQueue(t)
	job := testJob()

	var releaseOrder []int
	for i := 0; i < packets; i++ {
		i := i
		payload := make([]float32, packetFrames*testFormat.SamplesPerFrame())
		for j := range payload {
			payload[j] = float32(i)
		}
		s.Push(NewPacketView(testFormat, fixed.FromInt64(int64(i*packetFrames)), packetFrames, payload),
			func() { releaseOrder = append(releaseOrder, i) })
	}

	totalPeriods := packets * packetFrames / periodFrames
	for p := 0; p < totalPeriods; p++ {
		start := int64(p * periodFrames)

		view, ok := s.Read(job, fixed.FromInt64(start), periodFrames)
		require.True(t, ok, "period %d", p)
		require.Equal(t, fixed.FromInt64(start), view.Start(), "period %d", p)
		require.Equal(t, int64(periodFrames), view.Length(), "period %d", p)

		wantPacket := p * periodFrames / packetFrames
		require.Equal(t, float32(wantPacket), view.Payload()[0], "period %d", p)

		s.Advance(job, fixed.FromInt64(start+periodFrames))
	}

	assert.True(t, s.Empty())
	require.Len(t, releaseOrder, packets)
	for i, got := range releaseOrder {
		assert.Equal(t, i, got, "release %d out of order", i)
	}
}

func TestQueueRecordsMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(registry)
	require.NoError(t, err)

	s := NewPacketQueueProducerStage(PacketQueueConfig{
		Name:    "metered",
		Format:  testFormat,
		Metrics: m,
	})
	job := testJob()

	pushFrames(s, 52, 100, 1)
	_, ok := s.Read(job, fixed.FromInt64(100), 48)
	require.True(t, ok)
	s.Advance(job, fixed.FromInt64(152))
	pushFrames(s, 200, 10, 1)
	s.Clear()

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
