package clock

import (
	"fmt"
	"math"
	"math/bits"
)

// TimelineFunction is an affine map from a reference timeline to a subject
// timeline:
//
//	subject = subjectTime + (reference - referenceTime) * subjectDelta / referenceDelta
//
// The rate is a rational carried as a uint32 pair reduced to lowest terms,
// so conversions between clock domains stay exact and allocation-free.
// Values are immutable; two functions compare equal with == when they
// describe the same map. The zero value has a zero rate and panics on
// Apply; start from Identity or NewTimelineFunction instead.
type TimelineFunction struct {
	subjectTime    int64
	referenceTime  int64
	subjectDelta   uint32
	referenceDelta uint32
}

// NewTimelineFunction returns the function passing through the anchor pair
// (referenceTime, subjectTime) with slope subjectDelta/referenceDelta.
// The rate is reduced to lowest terms.
func NewTimelineFunction(subjectTime, referenceTime int64, subjectDelta, referenceDelta uint32) TimelineFunction {
	if g := gcd(subjectDelta, referenceDelta); g > 1 {
		subjectDelta /= g
		referenceDelta /= g
	}
	return TimelineFunction{
		subjectTime:    subjectTime,
		referenceTime:  referenceTime,
		subjectDelta:   subjectDelta,
		referenceDelta: referenceDelta,
	}
}

// Identity returns the function mapping every reference time to itself.
func Identity() TimelineFunction {
	return NewTimelineFunction(0, 0, 1, 1)
}

// SubjectTime returns the subject-side anchor.
func (f TimelineFunction) SubjectTime() int64 { return f.subjectTime }

// ReferenceTime returns the reference-side anchor.
func (f TimelineFunction) ReferenceTime() int64 { return f.referenceTime }

// SubjectDelta returns the reduced subject step of the rate.
func (f TimelineFunction) SubjectDelta() uint32 { return f.subjectDelta }

// ReferenceDelta returns the reduced reference step of the rate.
func (f TimelineFunction) ReferenceDelta() uint32 { return f.referenceDelta }

// Invertible reports whether ApplyInverse is defined, i.e. the rate is
// not zero.
func (f TimelineFunction) Invertible() bool {
	return f.subjectDelta != 0
}

// Apply maps a reference time to the subject timeline, rounding toward
// negative infinity so the map is monotonic. Results beyond the int64
// range saturate. Panics when the reference delta is zero, which only a
// misconstructed function has.
func (f TimelineFunction) Apply(referenceTime int64) int64 {
	if f.referenceDelta == 0 {
		panic("clock: Apply on a timeline function with zero reference delta")
	}
	return f.subjectTime + scale(referenceTime-f.referenceTime, f.subjectDelta, f.referenceDelta)
}

// ApplyInverse maps a subject time back to the reference timeline. Panics
// when the function is not invertible.
func (f TimelineFunction) ApplyInverse(subjectTime int64) int64 {
	if f.subjectDelta == 0 {
		panic("clock: ApplyInverse on a non-invertible timeline function")
	}
	return f.referenceTime + scale(subjectTime-f.subjectTime, f.referenceDelta, f.subjectDelta)
}

// Inverse returns the function with subject and reference roles swapped.
// Panics when the function is not invertible.
func (f TimelineFunction) Inverse() TimelineFunction {
	if f.subjectDelta == 0 {
		panic("clock: Inverse of a non-invertible timeline function")
	}
	return TimelineFunction{
		subjectTime:    f.referenceTime,
		referenceTime:  f.subjectTime,
		subjectDelta:   f.referenceDelta,
		referenceDelta: f.subjectDelta,
	}
}

// WithRateAdjustment returns a copy of f whose rate is replaced so the
// reference timeline runs ppm parts per million faster than the subject
// timeline. The anchor pair is unchanged, so the result agrees with f at
// the anchor. This models platform clock rate adjustment, which is
// absolute rather than cumulative.
func (f TimelineFunction) WithRateAdjustment(ppm int32) TimelineFunction {
	if ppm <= -1_000_000 {
		panic(fmt.Sprintf("clock: rate adjustment %d ppm would stop the timeline", ppm))
	}
	return NewTimelineFunction(f.subjectTime, f.referenceTime, 1_000_000, uint32(1_000_000+int64(ppm)))
}

func (f TimelineFunction) String() string {
	return fmt.Sprintf("timeline{subject=%d reference=%d rate=%d/%d}",
		f.subjectTime, f.referenceTime, f.subjectDelta, f.referenceDelta)
}

// scale computes value * subjectDelta / referenceDelta with a 128-bit
// intermediate, rounding toward negative infinity. Quotients outside the
// int64 range saturate.
func scale(value int64, subjectDelta, referenceDelta uint32) int64 {
	if value == 0 || subjectDelta == 0 {
		return 0
	}

	neg := value < 0
	mag := uint64(value)
	if neg {
		mag = -mag
	}

	hi, lo := bits.Mul64(mag, uint64(subjectDelta))
	if hi >= uint64(referenceDelta) {
		// Quotient needs more than 64 bits.
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}

	quot, rem := bits.Div64(hi, lo, uint64(referenceDelta))
	if !neg {
		if quot > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(quot)
	}
	if rem != 0 {
		quot++ // round toward negative infinity
	}
	if quot > 1<<63 {
		return math.MinInt64
	}
	return -int64(quot)
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
