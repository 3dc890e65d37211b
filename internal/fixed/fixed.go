// Package fixed implements fixed-point frame positions for the mixing
// pipeline. A Fixed value is a frame offset with 13 bits of sub-frame
// precision, giving 8192 steps per frame. Stage positions, packet starts
// and mix offsets are all expressed as Fixed so that rate conversion
// error never accumulates into integer frame numbers.
package fixed

import (
	"fmt"
	"math"
)

// FractionalBits is the number of sub-frame precision bits in a Fixed.
const FractionalBits = 13

// oneRaw is the raw representation of exactly one frame.
const oneRaw = int64(1) << FractionalBits

// fractionMask selects the sub-frame bits of a raw value.
const fractionMask = oneRaw - 1

// Fixed is a frame position with sub-frame precision. The zero value is
// frame zero. Fixed values compare and add with the native operators.
type Fixed int64

// FromInt64 returns the Fixed position of a whole frame number.
func FromInt64(frames int64) Fixed {
	return Fixed(frames << FractionalBits)
}

// FromFloat64 returns the closest Fixed position to a fractional frame
// number, rounding half away from zero.
func FromFloat64(frames float64) Fixed {
	return Fixed(math.Round(frames * float64(oneRaw)))
}

// FromRaw reinterprets a raw 50.13 value as a Fixed position.
func FromRaw(raw int64) Fixed {
	return Fixed(raw)
}

// Raw returns the underlying 50.13 representation.
func (f Fixed) Raw() int64 {
	return int64(f)
}

// Floor returns the largest whole frame number not greater than f.
func (f Fixed) Floor() int64 {
	return int64(f) >> FractionalBits
}

// Ceiling returns the smallest whole frame number not less than f.
func (f Fixed) Ceiling() int64 {
	return (int64(f) + fractionMask) >> FractionalBits
}

// Fraction returns the sub-frame part of f. The result is in [0, 1.0)
// frames and is non-negative even for negative positions, matching Floor.
func (f Fixed) Fraction() Fixed {
	return Fixed(int64(f) & fractionMask)
}

// Float64 returns f as a fractional frame count.
func (f Fixed) Float64() float64 {
	return float64(f) / float64(oneRaw)
}

// String formats f as a decimal frame count with its raw value, which is
// what test failures want to show.
func (f Fixed) String() string {
	return fmt.Sprintf("%g (raw %d)", f.Float64(), int64(f))
}
