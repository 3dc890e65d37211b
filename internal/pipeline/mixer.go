package pipeline

import (
	"log/slog"

	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/fixed"
	"github.com/tphakala/mixcore/internal/logging"
	"github.com/tphakala/mixcore/internal/observability/metrics"
)

// MixerConfig configures a MixerStage.
type MixerConfig struct {
	Name               string
	Format             Format
	ReferenceClockKoid uint64

	// Metrics is optional; when nil the stage records nothing.
	Metrics *metrics.PipelineMetrics
}

// MixerStage sums a set of source stages into one stream. Each Read
// drains every source over the requested range, adds the overlapping
// samples into an internal accumulation buffer, and leaves silence where
// no source had data. Because a mixer is itself a PipelineStage, mixers
// chain.
type MixerStage struct {
	name      string
	format    Format
	clockKoid uint64

	logger  *slog.Logger
	metrics *metrics.PipelineMetrics

	sources []PipelineStage
	dest    []float32
	silence SilenceInfo
}

// NewMixerStage returns a mixer with no sources.
func NewMixerStage(cfg MixerConfig) *MixerStage {
	return &MixerStage{
		name:      cfg.Name,
		format:    cfg.Format,
		clockKoid: cfg.ReferenceClockKoid,
		logger:    logging.ForService("pipeline").With("stage", cfg.Name),
		metrics:   cfg.Metrics,
	}
}

// Name implements PipelineStage.
func (s *MixerStage) Name() string { return s.name }

// Format implements PipelineStage.
func (s *MixerStage) Format() Format { return s.format }

// ReferenceClockKoid implements PipelineStage.
func (s *MixerStage) ReferenceClockKoid() uint64 { return s.clockKoid }

// AddSource attaches a source stage. The source must produce the mixer's
// format on the mixer's reference clock; resampling and clock
// reconciliation are not mixing concerns.
func (s *MixerStage) AddSource(src PipelineStage) error {
	if src.Format() != s.format {
		return errors.Newf("source %q format %s does not match mixer format %s",
			src.Name(), src.Format(), s.format).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("mixer", s.name).
			Build()
	}
	if src.ReferenceClockKoid() != s.clockKoid {
		return errors.Newf("source %q is on clock %d, mixer is on clock %d",
			src.Name(), src.ReferenceClockKoid(), s.clockKoid).
			Component("pipeline").
			Category(errors.CategoryValidation).
			Context("mixer", s.name).
			Build()
	}
	s.sources = append(s.sources, src)
	s.logger.Debug("source attached", "source", src.Name(), "sources", len(s.sources))
	return nil
}

// Sources returns the attached sources in attachment order.
func (s *MixerStage) Sources() []PipelineStage {
	out := make([]PipelineStage, len(s.sources))
	copy(out, s.sources)
	return out
}

// Advance implements PipelineStage by forwarding to every source; the
// mixer itself holds no frames.
func (s *MixerStage) Advance(job *MixJobContext, frame fixed.Fixed) {
	for _, src := range s.sources {
		src.Advance(job, frame)
	}
}

// Read implements PipelineStage. Unlike packet producers, a mixer always
// fills the whole request: frames no source covered stay zero. The
// request is aligned down to a whole frame. The returned view borrows
// the mixer's accumulation buffer and is valid until the next Read.
func (s *MixerStage) Read(job *MixJobContext, startFrame fixed.Fixed, frameCount int64) (PacketView, bool) {
	if frameCount <= 0 {
		return PacketView{}, false
	}
	first := startFrame.Floor()
	spf := int64(s.format.SamplesPerFrame())

	need := frameCount * spf
	if int64(cap(s.dest)) < need {
		s.dest = make([]float32, need)
	}
	s.dest = s.dest[:need]
	for i := range s.dest {
		s.dest[i] = 0
	}
	s.silence.Reset(frameCount)

	for _, src := range s.sources {
		s.mixSource(job, src, first, frameCount, spf)
	}

	if s.metrics != nil {
		s.metrics.RecordFramesMixed(s.name, s.silence.FilledFrames())
		s.metrics.RecordFramesSilence(s.name, s.silence.SilentFrames())
	}
	return NewPacketView(s.format, fixed.FromInt64(first), frameCount, s.dest), true
}

// LastSilence reports how many frames of the most recent Read carried
// source data and how many stayed zero fill.
func (s *MixerStage) LastSilence() (filled, silent int64) {
	return s.silence.FilledFrames(), s.silence.SilentFrames()
}

// mixSource accumulates one source over [first, first+frameCount).
func (s *MixerStage) mixSource(job *MixJobContext, src PipelineStage, first, frameCount, spf int64) {
	end := first + frameCount
	cursor := fixed.FromInt64(first)

	for cursor.Floor() < end {
		view, ok := src.Read(job, cursor, end-cursor.Floor())
		if !ok {
			return
		}

		destOffset := view.Start().Floor() - first
		payload := view.Payload()
		length := view.Length()

		// A view snapped to its packet grid can begin a fraction of a
		// frame before the cursor; drop the frames outside the window.
		if destOffset < 0 {
			trim := -destOffset
			if trim >= length {
				return
			}
			payload = payload[trim*spf:]
			length -= trim
			destOffset = 0
		}
		if length > frameCount-destOffset {
			length = frameCount - destOffset
		}
		if length <= 0 {
			return
		}

		base := destOffset * spf
		for i := int64(0); i < length*spf; i++ {
			s.dest[base+i] += payload[i]
		}
		s.silence.MarkFilled(destOffset, length)

		// A well-formed source makes progress each call; stop if the
		// cursor would not move.
		next := view.End()
		if next <= cursor {
			s.logger.Error("source returned a view that makes no progress",
				"source", src.Name(), "cursor", cursor.Float64())
			return
		}
		cursor = next
	}
}

var _ PipelineStage = (*MixerStage)(nil)

// SilenceInfo tracks which frames of a mix window received data, so a
// mix job can report how much of its output is real signal versus
// zero fill. Overlapping sources count a frame once.
type SilenceInfo struct {
	covered []bool
	filled  int64
}

// Reset prepares the tracker for a window of the given frame count.
func (si *SilenceInfo) Reset(frames int64) {
	if int64(cap(si.covered)) < frames {
		si.covered = make([]bool, frames)
	}
	si.covered = si.covered[:frames]
	for i := range si.covered {
		si.covered[i] = false
	}
	si.filled = 0
}

// MarkFilled records that frames [offset, offset+frames) received data.
func (si *SilenceInfo) MarkFilled(offset, frames int64) {
	for i := offset; i < offset+frames && i < int64(len(si.covered)); i++ {
		if !si.covered[i] {
			si.covered[i] = true
			si.filled++
		}
	}
}

// FilledFrames returns how many frames received data.
func (si *SilenceInfo) FilledFrames() int64 { return si.filled }

// SilentFrames returns how many frames stayed silent.
func (si *SilenceInfo) SilentFrames() int64 { return int64(len(si.covered)) - si.filled }
