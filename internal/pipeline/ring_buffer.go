package pipeline

import (
	"fmt"

	"github.com/tphakala/mixcore/internal/fixed"
)

// RingBufferConfig configures a RingBufferProducerStage.
type RingBufferConfig struct {
	Name               string
	Format             Format
	ReferenceClockKoid uint64

	// Frames is the ring capacity in frames.
	Frames int64

	// SafeReadFrame returns the highest frame number whose data is
	// stable in the ring. Frames above it are still being written;
	// frames more than Frames-1 below it have been overwritten.
	SafeReadFrame func() int64
}

// RingBufferProducerStage produces frames from a ring that an external
// writer fills in frame order, a hardware capture buffer in the usual
// case. The readable window at any instant is the Frames most recent
// frames ending at SafeReadFrame. There is nothing to release, so
// Advance is a no-op and reads are repeatable while the window still
// covers them.
type RingBufferProducerStage struct {
	name      string
	format    Format
	clockKoid uint64

	frames        int64
	buffer        []float32
	safeReadFrame func() int64
}

// NewRingBufferProducerStage allocates the ring and returns the stage.
func NewRingBufferProducerStage(cfg RingBufferConfig) *RingBufferProducerStage {
	if cfg.Frames <= 0 {
		panic(fmt.Sprintf("pipeline: ring capacity %d frames", cfg.Frames))
	}
	if cfg.SafeReadFrame == nil {
		panic("pipeline: ring buffer needs a SafeReadFrame func")
	}
	return &RingBufferProducerStage{
		name:          cfg.Name,
		format:        cfg.Format,
		clockKoid:     cfg.ReferenceClockKoid,
		frames:        cfg.Frames,
		buffer:        make([]float32, cfg.Frames*int64(cfg.Format.SamplesPerFrame())),
		safeReadFrame: cfg.SafeReadFrame,
	}
}

// Name implements PipelineStage.
func (s *RingBufferProducerStage) Name() string { return s.name }

// Format implements PipelineStage.
func (s *RingBufferProducerStage) Format() Format { return s.format }

// ReferenceClockKoid implements PipelineStage.
func (s *RingBufferProducerStage) ReferenceClockKoid() uint64 { return s.clockKoid }

// Frames returns the ring capacity.
func (s *RingBufferProducerStage) Frames() int64 { return s.frames }

// WriteFrames copies samples into the ring starting at the given frame
// number, wrapping as needed. samples must be whole frames.
func (s *RingBufferProducerStage) WriteFrames(startFrame int64, samples []float32) {
	spf := int64(s.format.SamplesPerFrame())
	if int64(len(samples))%spf != 0 {
		panic(fmt.Sprintf("pipeline: %d samples is not whole frames of %s", len(samples), s.format))
	}
	frame := startFrame
	for len(samples) > 0 {
		offset := s.ringIndex(frame)
		run := s.frames - offset
		if have := int64(len(samples)) / spf; have < run {
			run = have
		}
		copy(s.buffer[offset*spf:(offset+run)*spf], samples[:run*spf])
		samples = samples[run*spf:]
		frame += run
	}
}

// Advance implements PipelineStage. The writer reclaims frames on its
// own schedule; there is nothing to drop.
func (s *RingBufferProducerStage) Advance(*MixJobContext, fixed.Fixed) {}

// Read implements PipelineStage. The request is clamped to the readable
// window [safe-Frames+1, safe] and truncated at the physical end of the
// ring, so one call returns one contiguous run; the caller comes back
// for the wrapped remainder.
func (s *RingBufferProducerStage) Read(_ *MixJobContext, startFrame fixed.Fixed, frameCount int64) (PacketView, bool) {
	if frameCount <= 0 {
		return PacketView{}, false
	}
	safe := s.safeReadFrame()
	oldest := safe - s.frames + 1

	first := startFrame.Floor()
	last := first + frameCount - 1
	if first < oldest {
		first = oldest
	}
	if last > safe {
		last = safe
	}
	if first > last {
		return PacketView{}, false
	}

	offset := s.ringIndex(first)
	run := last - first + 1
	if tail := s.frames - offset; run > tail {
		run = tail
	}

	spf := int64(s.format.SamplesPerFrame())
	return NewPacketView(s.format, fixed.FromInt64(first), run, s.buffer[offset*spf:(offset+run)*spf]), true
}

// ringIndex maps a frame number onto the ring, handling negative frames.
func (s *RingBufferProducerStage) ringIndex(frame int64) int64 {
	i := frame % s.frames
	if i < 0 {
		i += s.frames
	}
	return i
}

var _ PipelineStage = (*RingBufferProducerStage)(nil)
