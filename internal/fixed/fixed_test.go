package fixed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromInt64RoundTrip(t *testing.T) {
	t.Parallel()

	for _, frames := range []int64{0, 1, -1, 480, -480, 1 << 40} {
		f := FromInt64(frames)
		assert.Equal(t, frames, f.Floor(), "Floor must invert FromInt64 for %d", frames)
		assert.Equal(t, frames, f.Ceiling(), "Ceiling must invert FromInt64 for %d", frames)
		assert.Equal(t, Fixed(0), f.Fraction(), "whole frames carry no fraction")
	}
}

func TestFloorCeilingFraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      int64
		floor    int64
		ceiling  int64
		fraction int64
	}{
		{name: "zero", raw: 0, floor: 0, ceiling: 0, fraction: 0},
		{name: "half frame", raw: oneRaw / 2, floor: 0, ceiling: 1, fraction: oneRaw / 2},
		{name: "one step above frame", raw: oneRaw + 1, floor: 1, ceiling: 2, fraction: 1},
		{name: "one step below frame", raw: oneRaw - 1, floor: 0, ceiling: 1, fraction: oneRaw - 1},
		{name: "negative half frame", raw: -oneRaw / 2, floor: -1, ceiling: 0, fraction: oneRaw / 2},
		{name: "negative whole frame", raw: -oneRaw, floor: -1, ceiling: -1, fraction: 0},
		{name: "negative one step", raw: -1, floor: -1, ceiling: 0, fraction: oneRaw - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := FromRaw(tt.raw)
			assert.Equal(t, tt.floor, f.Floor())
			assert.Equal(t, tt.ceiling, f.Ceiling())
			assert.Equal(t, Fixed(tt.fraction), f.Fraction())
		})
	}
}

func TestFromFloat64Rounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FromInt64(1), FromFloat64(1.0))
	assert.Equal(t, Fixed(oneRaw/2), FromFloat64(0.5))
	// Values between representable steps round to the nearest step.
	assert.Equal(t, Fixed(1), FromFloat64(1.4/float64(oneRaw)))
	assert.Equal(t, Fixed(-1), FromFloat64(-1.4/float64(oneRaw)))
}

func TestFloat64Inverse(t *testing.T) {
	t.Parallel()

	for _, raw := range []int64{0, 1, -1, oneRaw, -oneRaw, oneRaw/2 + 3} {
		f := FromRaw(raw)
		assert.Equal(t, f, FromFloat64(f.Float64()), "raw %d", raw)
	}
}
