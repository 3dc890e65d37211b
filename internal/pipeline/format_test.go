package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatValidation(t *testing.T) {
	t.Parallel()

	f, err := NewFormat(48000, 2)
	require.NoError(t, err)
	assert.Equal(t, 48000, f.SampleRate)
	assert.Equal(t, 2, f.Channels)

	_, err = NewFormat(0, 2)
	assert.Error(t, err)
	_, err = NewFormat(48000, 0)
	assert.Error(t, err)
	_, err = NewFormat(-44100, 1)
	assert.Error(t, err)
}

func TestFormatFrameMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		format   Format
		duration time.Duration
		frames   int64
	}{
		{"10ms at 48k", Format{SampleRate: 48000, Channels: 2}, 10 * time.Millisecond, 480},
		{"1ms at 48k", Format{SampleRate: 48000, Channels: 2}, time.Millisecond, 48},
		{"1s at 44.1k", Format{SampleRate: 44100, Channels: 1}, time.Second, 44100},
		{"1hour at 48k", Format{SampleRate: 48000, Channels: 2}, time.Hour, 48000 * 3600},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.frames, tc.format.FramesForDuration(tc.duration))
			assert.Equal(t, tc.duration, tc.format.DurationForFrames(tc.frames))
		})
	}
}

func TestFormatFramesForDurationFloors(t *testing.T) {
	t.Parallel()

	// 1ms at 44.1kHz is 44.1 frames; only whole frames fit.
	f := Format{SampleRate: 44100, Channels: 2}
	assert.Equal(t, int64(44), f.FramesForDuration(time.Millisecond))
}

func TestFormatKey(t *testing.T) {
	t.Parallel()

	f := Format{SampleRate: 48000, Channels: 2}
	assert.Equal(t, "float32:48000:2", f.Key())
	assert.Equal(t, f.Key(), f.String())
	assert.Equal(t, 8, f.BytesPerFrame())
	assert.Equal(t, 2, f.SamplesPerFrame())
}
