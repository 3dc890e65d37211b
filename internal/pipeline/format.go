package pipeline

import (
	"fmt"
	"time"

	"github.com/tphakala/mixcore/internal/clock"
	"github.com/tphakala/mixcore/internal/errors"
)

// bytesPerSample is fixed: the mix path carries float32 samples. Codec
// conversion happens outside the core.
const bytesPerSample = 4

// Format describes a stream of float32 PCM frames: how many frames per
// second and how many samples per frame. It carries everything the frame
// arithmetic needs; sample codecs are out of scope.
type Format struct {
	SampleRate int
	Channels   int
}

// NewFormat validates and returns a Format.
func NewFormat(sampleRate, channels int) (Format, error) {
	f := Format{SampleRate: sampleRate, Channels: channels}
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

// Validate reports whether the format is usable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return errors.Newf("invalid sample rate %d", f.SampleRate).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	if f.Channels <= 0 {
		return errors.Newf("invalid channel count %d", f.Channels).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// SamplesPerFrame returns the number of float32 samples in one frame.
func (f Format) SamplesPerFrame() int {
	return f.Channels
}

// BytesPerFrame returns the byte width of one frame.
func (f Format) BytesPerFrame() int {
	return f.Channels * bytesPerSample
}

// framesPerNS returns the exact frames-per-nanosecond rate as a timeline
// function from nanoseconds to frame numbers.
func (f Format) framesPerNS() clock.TimelineFunction {
	return clock.NewTimelineFunction(0, 0, uint32(f.SampleRate), 1_000_000_000)
}

// FramesForDuration returns how many whole frames fit in d.
func (f Format) FramesForDuration(d time.Duration) int64 {
	return f.framesPerNS().Apply(int64(d))
}

// DurationForFrames returns the time n frames span. Exact for any frame
// count a stream can reach; no float drift.
func (f Format) DurationForFrames(n int64) time.Duration {
	return time.Duration(f.framesPerNS().ApplyInverse(n))
}

// Key is the compact format descriptor used by graph edge compatibility
// checks and topology files.
func (f Format) Key() string {
	return fmt.Sprintf("float32:%d:%d", f.SampleRate, f.Channels)
}

func (f Format) String() string {
	return f.Key()
}
