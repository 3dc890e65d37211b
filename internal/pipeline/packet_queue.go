package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tphakala/mixcore/internal/fixed"
	"github.com/tphakala/mixcore/internal/logging"
	"github.com/tphakala/mixcore/internal/observability/metrics"
)

// pendingPacket is a queued packet plus its bookkeeping: the release
// callback that must fire exactly once when the packet leaves the queue,
// and a marker so a late packet reports its underflow gap only the first
// time a Read sees it.
type pendingPacket struct {
	PacketView
	release    func()
	seenInRead bool
}

// fire invokes the release callback once and drops it.
func (p *pendingPacket) fire() {
	if p.release != nil {
		p.release()
		p.release = nil
	}
}

// PacketQueueConfig configures a PacketQueueProducerStage.
type PacketQueueConfig struct {
	Name               string
	Format             Format
	ReferenceClockKoid uint64

	// Metrics is optional; when nil the stage records nothing.
	Metrics *metrics.PipelineMetrics

	// StrictOrder makes Push panic when a packet starts before the end
	// of the previously pushed one. Useful in tests and simulations
	// where the feeder is supposed to produce an ordered stream.
	StrictOrder bool
}

// PacketQueueProducerStage produces frames from a FIFO of pushed packets.
// Push and Clear may be called from the feeding side, Advance and Read
// from the mix side, but never concurrently: like every stage, callers
// serialize access.
//
// Frames are consumed by Advance; Read is repeatable over the same range
// until an Advance passes it. A packet whose start lies before the read
// position arrived too late, the missed span is reported as an underflow
// once per packet.
type PacketQueueProducerStage struct {
	name        string
	format      Format
	clockKoid   uint64
	strictOrder bool

	logger  *slog.Logger
	metrics *metrics.PipelineMetrics

	queue             []*pendingPacket
	underflowReporter func(time.Duration)
	lastPushEnd       fixed.Fixed
}

// NewPacketQueueProducerStage returns an empty queue-backed producer.
func NewPacketQueueProducerStage(cfg PacketQueueConfig) *PacketQueueProducerStage {
	return &PacketQueueProducerStage{
		name:        cfg.Name,
		format:      cfg.Format,
		clockKoid:   cfg.ReferenceClockKoid,
		strictOrder: cfg.StrictOrder,
		logger:      logging.ForService("pipeline").With("stage", cfg.Name),
		metrics:     cfg.Metrics,
		lastPushEnd: fixed.Fixed(math.MinInt64),
	}
}

// Name implements PipelineStage.
func (s *PacketQueueProducerStage) Name() string { return s.name }

// Format implements PipelineStage.
func (s *PacketQueueProducerStage) Format() Format { return s.format }

// ReferenceClockKoid implements PipelineStage.
func (s *PacketQueueProducerStage) ReferenceClockKoid() uint64 { return s.clockKoid }

// SetUnderflowReporter installs a callback invoked with the estimated
// missed duration each time a late packet is first seen by a Read.
func (s *PacketQueueProducerStage) SetUnderflowReporter(fn func(time.Duration)) {
	s.underflowReporter = fn
}

// Push appends a packet to the queue. The packet's format must match the
// stage format. release may be nil; otherwise it is invoked exactly once
// when the packet leaves the queue, whether consumed, advanced past,
// or cleared.
func (s *PacketQueueProducerStage) Push(view PacketView, release func()) {
	if view.Format() != s.format {
		panic(fmt.Sprintf("pipeline: packet format %s does not match stage format %s", view.Format(), s.format))
	}
	if s.strictOrder && view.Start() < s.lastPushEnd {
		panic(fmt.Sprintf("pipeline: packet starting at %s pushed after queue end %s", view.Start(), s.lastPushEnd))
	}
	if end := view.End(); end > s.lastPushEnd {
		s.lastPushEnd = end
	}
	s.queue = append(s.queue, &pendingPacket{PacketView: view, release: release})
	if s.metrics != nil {
		s.metrics.RecordPacketPushed(s.name)
		s.metrics.UpdateQueueDepth(s.name, len(s.queue))
	}
}

// Clear drops every queued packet, firing each release callback. The
// push-order watermark resets so a feeder may restart its timeline.
func (s *PacketQueueProducerStage) Clear() {
	for len(s.queue) > 0 {
		s.popFront("cleared")
	}
	s.lastPushEnd = fixed.Fixed(math.MinInt64)
	if s.metrics != nil {
		s.metrics.UpdateQueueDepth(s.name, 0)
	}
}

// Empty reports whether no packets are queued.
func (s *PacketQueueProducerStage) Empty() bool { return len(s.queue) == 0 }

// Len returns the number of queued packets.
func (s *PacketQueueProducerStage) Len() int { return len(s.queue) }

// Advance implements PipelineStage: packets that end at or before frame
// are released and removed.
func (s *PacketQueueProducerStage) Advance(_ *MixJobContext, frame fixed.Fixed) {
	for len(s.queue) > 0 && s.queue[0].End() <= frame {
		s.popFront("advanced-past")
	}
	if s.metrics != nil {
		s.metrics.UpdateQueueDepth(s.name, len(s.queue))
	}
}

// Read implements PipelineStage. It serves the overlap between the
// request and the first packet that has one. A packet already fully
// behind startFrame is released on the way. When the first live packet
// starts before startFrame, the frames in between were never delivered:
// that gap is reported as an underflow, once, via the packet's seen
// marker, then the surviving overlap is returned as usual.
func (s *PacketQueueProducerStage) Read(_ *MixJobContext, startFrame fixed.Fixed, frameCount int64) (PacketView, bool) {
	for len(s.queue) > 0 {
		front := s.queue[0]

		if front.End() <= startFrame {
			s.popFront("advanced-past")
			if s.metrics != nil {
				s.metrics.UpdateQueueDepth(s.name, len(s.queue))
			}
			continue
		}

		if !front.seenInRead {
			front.seenInRead = true
			if front.Start() < startFrame {
				s.reportUnderflow(startFrame - front.Start())
			}
		}

		view, ok := front.IntersectionWith(startFrame, frameCount)
		if !ok {
			// Queue is ordered; the first packet already starts past
			// the requested range.
			return PacketView{}, false
		}
		return view, true
	}
	return PacketView{}, false
}

// popFront removes the head packet and fires its release callback. A
// packet that no Read ever saw counts as dropped under the given reason.
func (s *PacketQueueProducerStage) popFront(reason string) {
	front := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	front.fire()
	if s.metrics != nil {
		s.metrics.RecordRelease(s.name)
		if !front.seenInRead {
			s.metrics.RecordPacketDropped(s.name, reason)
		}
	}
	if !front.seenInRead {
		s.logger.Debug("packet discarded unread",
			"reason", reason,
			"packet_start", front.Start().Float64(),
			"packet_frames", front.Length())
	}
}

// reportUnderflow translates the missed span into a duration and hands it
// to the log, the metrics, and the installed reporter.
func (s *PacketQueueProducerStage) reportUnderflow(gap fixed.Fixed) {
	missed := s.format.DurationForFrames(gap.Ceiling())
	s.logger.Warn("underflow: packet arrived late",
		"missed_frames", gap.Ceiling(),
		"missed", missed)
	if s.metrics != nil {
		s.metrics.RecordUnderflow(s.name, missed.Seconds())
	}
	if s.underflowReporter != nil {
		s.underflowReporter(missed)
	}
}

var _ PipelineStage = (*PacketQueueProducerStage)(nil)
