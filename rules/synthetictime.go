//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via
// ruleguard, enforcing the synthetic time discipline of the mix runtime.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WallClockInMixCode detects wall clock reads inside the pipeline and
// clock packages.
//
// Stages and synthetic clocks must derive all timing from the
// MixJobContext and the clock realm that drives them; a time.Now() in
// that code makes runs non-reproducible and breaks the simulate
// command's determinism guarantee.
//
// Problematic pattern:
//
//	func (s *MixerStage) Read(...) {
//	    start := time.Now()  // wall clock leaks into mix math
//
// Correct pattern:
//
//	func (s *MixerStage) Read(job *MixJobContext, ...) {
//	    start := job.PeriodStart()
func WallClockInMixCode(m dsl.Matcher) {
	mixFiles := `(?:stage|packet|packet_queue|ring_buffer|mixer|format|clock|synthetic|timeline)\.go$`

	m.Match(`time.Now()`).
		Where(m.File().Name.Matches(mixFiles)).
		Report("wall clock read in synthetic-time code; derive timing from the MixJobContext or the clock realm")

	m.Match(`time.Sleep($_)`).
		Where(m.File().Name.Matches(mixFiles)).
		Report("sleeping in synthetic-time code; stages never block, the caller owns pacing")
}

// DeferredTimeSince detects deferred calls that evaluate time.Since at
// defer time instead of function exit, reporting near-zero durations.
//
// Broken pattern:
//
//	start := time.Now()
//	defer log.Println(time.Since(start))  // evaluated now, not at exit
//
// Correct pattern:
//
//	start := time.Now()
//	defer func() { log.Println(time.Since(start)) }()
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(`defer $fn($*_, time.Since($start), $*_)`).
		Report("time.Since($start) is evaluated at defer time, not function exit; wrap in func() to measure actual duration")

	m.Match(`defer $fn($*_, time.Now(), $*_)`).
		Report("time.Now() is evaluated at defer time, not function exit; wrap in func() if you want exit time")
}
