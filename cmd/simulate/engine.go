// Package simulate drives a deterministic mix run: per-source feeder
// goroutines render samples into spool buffers while a single mix loop
// packetizes them, pulls the mixer one period at a time, and advances a
// synthetic clock realm. Wall time never enters the mix math, so two
// runs with the same settings produce the same output.
package simulate

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tphakala/mixcore/internal/clock"
	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/datastore"
	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/fixed"
	"github.com/tphakala/mixcore/internal/logging"
	"github.com/tphakala/mixcore/internal/mediafile"
	"github.com/tphakala/mixcore/internal/observability/metrics"
	"github.com/tphakala/mixcore/internal/pipeline"
)

var log = logging.ForService("simulate")

// spoolPoll is how long a spool reader or writer backs off when the
// other side has not caught up yet.
const spoolPoll = 200 * time.Microsecond

// errFeedComplete stops a media file read once the run's frame budget
// is covered.
var errFeedComplete = errors.NewStd("feed complete")

// RunReport summarizes one simulated mix run.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration // wall time the run took
	Simulated time.Duration // stream time covered

	Format  pipeline.Format
	Sources int
	Periods int64
	Frames  int64 // frames pulled out of the mixer

	FramesMixed   int64 // output frames at least one source covered
	FramesSilence int64 // output frames left as zero fill

	PacketsPushed   int64
	PacketsReleased int64

	// ClockDrift is how far the reference clock has moved away from
	// realm monotonic time by the end of the run; zero unless a rate
	// adjustment was applied.
	ClockDrift time.Duration

	Underflows []datastore.UnderflowEvent

	// Captured holds the mixed stream, interleaved float32.
	Captured []float32
}

// engine executes one run. The mix loop owns every field except the
// release counter, which packet release callbacks may touch from Clear
// after the loop has ended.
type engine struct {
	settings *conf.Settings
	format   pipeline.Format
	pm       *metrics.PipelineMetrics

	realm *clock.SyntheticClockRealm
	clk   *clock.SyntheticClock

	mixer   *pipeline.MixerStage
	feeders []*feeder

	ring     *pipeline.RingBufferProducerStage
	ringBuf  []float32
	ringSafe int64
	ringFreq float64

	periodFrames int64
	packetFrames int64
	periods      int64
	totalFrames  int64

	currentPeriod int64
	pushed        int64
	released      atomic.Int64
	events        []datastore.UnderflowEvent
}

// feeder owns one packet-queue source. The producer goroutine renders
// samples (a tone, or a media file) into the spool; the mix side drains
// the spool into timestamped packets. The spool and the done flag are
// the only state both sides touch.
type feeder struct {
	name  string
	stage *pipeline.PacketQueueProducerStage

	spool *ringbuffer.RingBuffer
	done  atomic.Bool

	format       pipeline.Format
	packetFrames int64
	totalFrames  int64

	// Producer side.
	input string // media file path, empty renders a tone
	freq  float64
	gain  float64

	// Mix side.
	nextStart  int64 // frame timestamp of the next packet
	index      int   // packet counter, drives late injection
	lateSet    map[int]bool
	lateBy     int64 // frames the mix cursor runs ahead before a stalled stream resumes
	stallUntil int64 // mix cursor frame at which the pending stall lifts
	exhausted  bool
}

// newEngine validates the simulation settings and assembles the stage
// graph: one packet-queue source per configured feeder, an optional
// ring source, all summed by a single mixer on one synthetic clock.
func newEngine(settings *conf.Settings, pm *metrics.PipelineMetrics) (*engine, error) {
	format, err := pipeline.NewFormat(settings.Audio.SampleRate, settings.Audio.Channels)
	if err != nil {
		return nil, err
	}

	sim := settings.Simulation
	periodFrames := format.FramesForDuration(settings.Audio.Period)
	packetFrames := format.FramesForDuration(sim.PacketDuration)
	if periodFrames < 1 || packetFrames < 1 {
		return nil, errors.Newf("period %s and packet %s must each cover at least one frame at %s",
			settings.Audio.Period, sim.PacketDuration, format).
			Component("simulate").
			Category(errors.CategoryValidation).
			Build()
	}

	// The run rounds up to whole periods so the requested duration is
	// fully covered.
	reqFrames := format.FramesForDuration(sim.Duration)
	periods := (reqFrames + periodFrames - 1) / periodFrames
	if periods < 1 {
		return nil, errors.Newf("duration %s is shorter than one frame", sim.Duration).
			Component("simulate").
			Category(errors.CategoryValidation).
			Build()
	}
	totalFrames := periods * periodFrames

	if sim.RingFrames != 0 && sim.RingFrames < periodFrames {
		return nil, errors.Newf("ring capacity %d frames cannot hold one %d frame period",
			sim.RingFrames, periodFrames).
			Component("simulate").
			Category(errors.CategoryValidation).
			Build()
	}

	lateBy := format.FramesForDuration(sim.LateBy)
	if sim.LatePackets > 0 && lateBy == 0 {
		lateBy = periodFrames
	}

	realm := clock.NewSyntheticClockRealm()
	clk := realm.CreateClock("mix-reference", clock.DomainMonotonic, true, clock.Identity())

	e := &engine{
		settings:     settings,
		format:       format,
		pm:           pm,
		realm:        realm,
		clk:          clk,
		periodFrames: periodFrames,
		packetFrames: packetFrames,
		periods:      periods,
		totalFrames:  totalFrames,
	}

	e.mixer = pipeline.NewMixerStage(pipeline.MixerConfig{
		Name:               "main-mix",
		Format:             format,
		ReferenceClockKoid: clk.Koid(),
		Metrics:            pm,
	})

	totalPackets := (totalFrames + packetFrames - 1) / packetFrames
	spoolBytes := int(packetFrames) * format.BytesPerFrame() * 8
	if spoolBytes < 4096 {
		spoolBytes = 4096
	}

	for i := range sim.Sources {
		f := &feeder{
			name:         fmt.Sprintf("packet-source-%d", i),
			spool:        ringbuffer.New(spoolBytes),
			format:       format,
			packetFrames: packetFrames,
			totalFrames:  totalFrames,
			freq:         220 * float64(i+1),
			gain:         0.5 / float64(sim.Sources),
			lateBy:       lateBy,
		}
		if i == 0 {
			f.input = sim.Input
			if sim.LatePackets > 0 {
				f.lateSet = lateIndices(totalPackets, sim.LatePackets)
			}
		}
		f.stage = pipeline.NewPacketQueueProducerStage(pipeline.PacketQueueConfig{
			Name:               f.name,
			Format:             format,
			ReferenceClockKoid: clk.Koid(),
			Metrics:            pm,
			StrictOrder:        settings.Audio.StrictOrder,
		})
		name := f.name
		f.stage.SetUnderflowReporter(func(missed time.Duration) {
			e.events = append(e.events, datastore.UnderflowEvent{
				Stage:        name,
				PeriodIndex:  e.currentPeriod,
				MissedFrames: format.FramesForDuration(missed),
				Missed:       missed,
				DetectedAt:   time.Now(),
			})
		})
		if err := e.mixer.AddSource(f.stage); err != nil {
			return nil, err
		}
		e.feeders = append(e.feeders, f)
	}

	if sim.RingFrames > 0 {
		e.ringSafe = -1
		e.ringFreq = 110
		e.ringBuf = make([]float32, int(periodFrames)*format.SamplesPerFrame())
		e.ring = pipeline.NewRingBufferProducerStage(pipeline.RingBufferConfig{
			Name:               "capture-ring",
			Format:             format,
			ReferenceClockKoid: clk.Koid(),
			Frames:             sim.RingFrames,
			SafeReadFrame:      func() int64 { return e.ringSafe },
		})
		if err := e.mixer.AddSource(e.ring); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// lateIndices spreads count packet indices evenly across the stream,
// skipping packet 0 so the run never starts stalled.
func lateIndices(totalPackets int64, count int) map[int]bool {
	if count <= 0 || totalPackets <= 1 {
		return nil
	}
	set := make(map[int]bool, count)
	step := totalPackets / int64(count+1)
	if step < 1 {
		step = 1
	}
	for i := 1; i <= count; i++ {
		idx := int64(i) * step
		if idx >= totalPackets {
			idx = totalPackets - 1
		}
		if idx > 0 {
			set[int(idx)] = true
		}
	}
	return set
}

// runSimulation builds an engine from the settings and executes one run.
func runSimulation(ctx context.Context, settings *conf.Settings, pm *metrics.PipelineMetrics) (*RunReport, error) {
	e, err := newEngine(settings, pm)
	if err != nil {
		return nil, err
	}
	return e.run(ctx)
}

// run starts the producer goroutines and the mix loop, waits for both,
// and assembles the report. Queues are cleared on every exit path so
// each pushed packet fires its release exactly once.
func (e *engine) run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Format:    e.format,
		Sources:   len(e.feeders),
		Periods:   e.periods,
	}
	log.Info("run starting",
		"run_id", report.RunID,
		"format", e.format.String(),
		"period", e.settings.Audio.Period,
		"periods", e.periods,
		"sources", len(e.feeders),
		"ring", e.ring != nil)

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range e.feeders {
		g.Go(func() error { return f.produce(gctx) })
	}
	g.Go(func() error { return e.mixLoop(gctx, report) })

	err := g.Wait()
	for _, f := range e.feeders {
		f.stage.Clear()
	}
	if err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(report.StartedAt)
	report.Simulated = e.format.DurationForFrames(e.totalFrames)
	report.PacketsPushed = e.pushed
	report.PacketsReleased = e.released.Load()
	report.ClockDrift = time.Duration(e.clk.Now() - e.realm.Now())
	report.Underflows = e.events

	log.Info("run finished",
		"run_id", report.RunID,
		"elapsed", report.Elapsed,
		"simulated", report.Simulated,
		"frames_mixed", report.FramesMixed,
		"frames_silence", report.FramesSilence,
		"packets", report.PacketsPushed,
		"underflows", len(report.Underflows))
	return report, nil
}

// mixLoop pulls the mixer once per period: deliver pending packets,
// read one period into the capture buffer, advance every stage past it,
// move the realm forward. With pacing enabled each iteration also waits
// out one wall-clock period.
func (e *engine) mixLoop(ctx context.Context, report *RunReport) error {
	var limiter *rate.Limiter
	if e.settings.Simulation.Pace {
		limiter = rate.NewLimiter(rate.Every(e.settings.Audio.Period), 1)
	}
	adjustAt := int64(-1)
	if e.settings.Simulation.RateAdjustPPM != 0 {
		adjustAt = e.periods / 2
	}

	spf := int64(e.format.SamplesPerFrame())
	report.Captured = make([]float32, 0, e.totalFrames*spf)

	frame := int64(0)
	for p := int64(0); p < e.periods; p++ {
		e.currentPeriod = p
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if p == adjustAt {
			ppm := int32(e.settings.Simulation.RateAdjustPPM)
			e.clk.SetRate(ppm)
			log.Info("reference clock rate adjusted", "period", p, "ppm", ppm)
		}
		jobStart := time.Now()

		if e.ring != nil {
			e.fillRing(frame)
		}

		// Stage one period of lead beyond this one so the queues never
		// starve on schedule alone.
		horizon := frame + 2*e.periodFrames
		for _, f := range e.feeders {
			if err := f.deliver(ctx, e, frame, horizon); err != nil {
				return err
			}
		}

		job := pipeline.NewMixJobContext(e.realm.Now(), e.settings.Audio.Period, e.clk)
		view, ok := e.mixer.Read(job, fixed.FromInt64(frame), e.periodFrames)
		if ok {
			report.Captured = append(report.Captured, view.Payload()...)
			filled, silent := e.mixer.LastSilence()
			report.FramesMixed += filled
			report.FramesSilence += silent
		}

		frame += e.periodFrames
		e.mixer.Advance(job, fixed.FromInt64(frame))
		e.realm.AdvanceBy(e.settings.Audio.Period)
		if e.pm != nil {
			e.pm.RecordMixJob(e.mixer.Name(), "ok", time.Since(jobStart).Seconds())
		}
	}
	report.Frames = frame
	return nil
}

// fillRing renders the next period of the ring tone in place and
// publishes it as safe to read.
func (e *engine) fillRing(frame int64) {
	renderTone(e.ringBuf, e.format, e.ringFreq, 0.1, frame)
	e.ring.WriteFrames(frame, e.ringBuf)
	e.ringSafe = frame + e.periodFrames - 1
}

// deliver packetizes spooled samples into timestamped pushes until the
// stage holds data up to horizon. cursor is the current period start; a
// pending stall keeps the whole stream back until the cursor catches
// up, which is how late delivery is injected without reordering pushes.
func (f *feeder) deliver(ctx context.Context, e *engine, cursor, horizon int64) error {
	for !f.exhausted && f.nextStart < horizon {
		if f.lateSet[f.index] {
			delete(f.lateSet, f.index)
			f.stallUntil = f.nextStart + f.lateBy
		}
		if cursor < f.stallUntil {
			return nil
		}

		want := f.packetFrames
		if rem := f.totalFrames - f.nextStart; rem < want {
			want = rem
		}
		if want <= 0 {
			f.exhausted = true
			return nil
		}

		data, err := f.nextData(ctx, int(want)*f.format.BytesPerFrame())
		if err != nil {
			return err
		}
		frames := int64(len(data)) / int64(f.format.BytesPerFrame())
		if frames == 0 {
			f.exhausted = true
			return nil
		}

		view := pipeline.NewPacketView(f.format, fixed.FromInt64(f.nextStart), frames, decodeSamples(data))
		f.stage.Push(view, func() { e.released.Add(1) })
		e.pushed++
		f.index++
		f.nextStart += frames

		if frames < want {
			// Short tail, the producer is done.
			f.exhausted = true
		}
	}
	return nil
}

// nextData blocks until want bytes are spooled, returning fewer only
// when the producer has finished and the spool drained.
func (f *feeder) nextData(ctx context.Context, want int) ([]byte, error) {
	out := make([]byte, want)
	have := 0
	for have < want {
		n, err := f.spool.Read(out[have:])
		have += n
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			return nil, errors.New(err).
				Component("simulate").
				Category(errors.CategorySystem).
				Context("spool", f.name).
				Build()
		}
		if have == want {
			break
		}
		if f.done.Load() && f.spool.Length() == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(spoolPoll):
		}
	}
	return out[:have], nil
}

// produce renders this feeder's samples into the spool until the run's
// frame budget is covered. The done flag is set only after the final
// write so the mix side never sees a premature end of stream.
func (f *feeder) produce(ctx context.Context) error {
	defer f.done.Store(true)
	if f.input != "" {
		return f.produceFile(ctx)
	}
	return f.produceTone(ctx)
}

func (f *feeder) produceTone(ctx context.Context) error {
	spf := f.format.SamplesPerFrame()
	chunk := make([]float32, int(f.packetFrames)*spf)
	buf := make([]byte, len(chunk)*4)
	for frame := int64(0); frame < f.totalFrames; {
		n := f.packetFrames
		if rem := f.totalFrames - frame; rem < n {
			n = rem
		}
		part := chunk[:int(n)*spf]
		renderTone(part, f.format, f.freq, f.gain, frame)
		nb := encodeSamples(part, buf)
		if err := f.writeAll(ctx, buf[:nb]); err != nil {
			return err
		}
		frame += n
	}
	return nil
}

// produceFile streams a media file into the spool. The file must match
// the stream format; a file shorter than the run leaves the source
// silent for the remainder.
func (f *feeder) produceFile(ctx context.Context) error {
	info, err := mediafile.ReadInfo(f.input)
	if err != nil {
		return err
	}
	if info.SampleRate != f.format.SampleRate || info.NumChannels != f.format.Channels {
		return errors.Newf("input %s is %d Hz %d ch, the stream needs %s",
			f.input, info.SampleRate, info.NumChannels, f.format).
			Component("simulate").
			Category(errors.CategoryValidation).
			Build()
	}

	var written int64
	buf := make([]byte, int(f.packetFrames)*f.format.BytesPerFrame())
	_, err = mediafile.ReadAudioFile(ctx, f.input, int(f.packetFrames), func(samples []float32) error {
		remaining := (f.totalFrames - written) * int64(f.format.SamplesPerFrame())
		if remaining <= 0 {
			return errFeedComplete
		}
		if int64(len(samples)) > remaining {
			samples = samples[:remaining]
		}
		need := len(samples) * 4
		if len(buf) < need {
			buf = make([]byte, need)
		}
		nb := encodeSamples(samples, buf[:need])
		if werr := f.writeAll(ctx, buf[:nb]); werr != nil {
			return werr
		}
		written += int64(len(samples) / f.format.SamplesPerFrame())
		return nil
	})
	if err != nil && !errors.Is(err, errFeedComplete) {
		return err
	}
	if written < f.totalFrames {
		log.Info("input shorter than the run, source goes silent",
			"source", f.name,
			"path", f.input,
			"frames", written,
			"run_frames", f.totalFrames)
	}
	return nil
}

// writeAll spools data, waiting out full-buffer backpressure.
func (f *feeder) writeAll(ctx context.Context, data []byte) error {
	for len(data) > 0 {
		n, err := f.spool.Write(data)
		data = data[n:]
		if err == nil {
			continue
		}
		if errors.Is(err, ringbuffer.ErrIsFull) || errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(spoolPoll):
			}
			continue
		}
		return errors.New(err).
			Component("simulate").
			Category(errors.CategorySystem).
			Context("spool", f.name).
			Build()
	}
	return nil
}

// renderTone fills dst with an interleaved sine at freq, phase-locked
// to the absolute frame position so consecutive chunks are continuous.
func renderTone(dst []float32, format pipeline.Format, freq, gain float64, startFrame int64) {
	spf := format.SamplesPerFrame()
	frames := len(dst) / spf
	for i := 0; i < frames; i++ {
		v := float32(gain * math.Sin(2*math.Pi*freq*float64(startFrame+int64(i))/float64(format.SampleRate)))
		for ch := 0; ch < spf; ch++ {
			dst[i*spf+ch] = v
		}
	}
}

// encodeSamples packs samples into buf as little-endian float32 bits.
func encodeSamples(samples []float32, buf []byte) int {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return len(samples) * 4
}

// decodeSamples is the inverse of encodeSamples.
func decodeSamples(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
