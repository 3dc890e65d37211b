package pipeline

import (
	"fmt"

	"github.com/tphakala/mixcore/internal/fixed"
)

// PacketView is a non-owning window onto a run of contiguous frames. The
// payload slice belongs to the producer that pushed it; views derived via
// IntersectionWith alias the same backing array.
type PacketView struct {
	format  Format
	start   fixed.Fixed
	length  int64
	payload []float32
}

// NewPacketView wraps frameCount frames of payload starting at the given
// fractional frame position. The payload must hold at least
// frameCount*channels samples.
func NewPacketView(format Format, start fixed.Fixed, frameCount int64, payload []float32) PacketView {
	if frameCount < 0 {
		panic(fmt.Sprintf("pipeline: packet frame count %d is negative", frameCount))
	}
	if need := frameCount * int64(format.SamplesPerFrame()); int64(len(payload)) < need {
		panic(fmt.Sprintf("pipeline: payload holds %d samples, packet needs %d", len(payload), need))
	}
	return PacketView{format: format, start: start, length: frameCount, payload: payload}
}

// Format returns the frame layout of the payload.
func (v PacketView) Format() Format { return v.format }

// Start returns the position of the first frame.
func (v PacketView) Start() fixed.Fixed { return v.start }

// End returns the position one past the last frame.
func (v PacketView) End() fixed.Fixed { return v.start + fixed.FromInt64(v.length) }

// Length returns the frame count.
func (v PacketView) Length() int64 { return v.length }

// Payload returns the sample data, frameCount*channels float32 values.
func (v PacketView) Payload() []float32 {
	return v.payload[:v.length*int64(v.format.SamplesPerFrame())]
}

// IntersectionWith returns the part of this packet that overlaps the range
// [rangeStart, rangeStart+rangeLength frames). The result is aligned to
// this packet's frame grid: the first returned frame is the whole frame
// containing the intersection start, hence it can begin up to one frame
// before rangeStart when the grids are offset. Returns false when the
// overlap is empty.
func (v PacketView) IntersectionWith(rangeStart fixed.Fixed, rangeLength int64) (PacketView, bool) {
	rangeEnd := rangeStart + fixed.FromInt64(rangeLength)

	isectStart := v.start
	if rangeStart > isectStart {
		isectStart = rangeStart
	}
	isectEnd := v.End()
	if rangeEnd < isectEnd {
		isectEnd = rangeEnd
	}
	if isectStart >= isectEnd {
		return PacketView{}, false
	}

	// Snap to the packet grid: whole frames measured from v.start.
	firstFrame := (isectStart - v.start).Floor()
	endFrame := (isectEnd - v.start).Ceiling()

	offset := firstFrame * int64(v.format.SamplesPerFrame())
	return PacketView{
		format:  v.format,
		start:   v.start + fixed.FromInt64(firstFrame),
		length:  endFrame - firstFrame,
		payload: v.payload[offset:],
	}, true
}

func (v PacketView) String() string {
	return fmt.Sprintf("packet[%s, %s) %d frames %s", v.start, v.End(), v.length, v.format)
}
