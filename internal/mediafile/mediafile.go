// Package mediafile reads WAV and FLAC files into interleaved float32
// samples for the simulation source. Files are streamed in fixed-size
// chunks, no resampling is performed: callers validate the file format
// against the stream format before feeding the pipeline.
package mediafile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/logging"
)

// Package-level structured logger
var log = logging.ForService("mediafile")

// Info describes a media file's stream parameters.
type Info struct {
	SampleRate   int
	TotalSamples int // per-channel sample count; for WAV an estimate from file size
	NumChannels  int
	BitDepth     int
}

// Duration returns the playing time implied by the sample count and rate.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(i.TotalSamples) * time.Second / time.Duration(i.SampleRate)
}

// ChunkCallback receives interleaved float32 samples in [-1, 1]. Returning an
// error stops the read and propagates to the ReadAudioFile caller.
type ChunkCallback func(samples []float32) error

// ReadInfo opens a media file and returns its stream parameters without
// decoding sample data.
func ReadInfo(path string) (Info, error) {
	file, err := os.Open(path) //nolint:gosec // G304: caller-supplied media path
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "read_media_info").
			Context("path", path).
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVInfo(file)
	case ".flac":
		return readFLACInfo(file)
	default:
		return Info{}, errors.Newf("unsupported media file type: %s", filepath.Ext(path)).
			Category(errors.CategoryValidation).
			Context("operation", "read_media_info").
			Context("path", path).
			Build()
	}
}

// ReadAudioFile streams a media file through the callback in chunks of
// chunkFrames frames (chunkFrames * channels interleaved samples). The final
// chunk may be shorter. The context is checked between chunks so a long read
// can be cancelled.
func ReadAudioFile(ctx context.Context, path string, chunkFrames int, callback ChunkCallback) (Info, error) {
	if chunkFrames <= 0 {
		return Info{}, errors.Newf("chunk size must be positive, got %d", chunkFrames).
			Category(errors.CategoryValidation).
			Context("operation", "read_media_file").
			Build()
	}

	file, err := os.Open(path) //nolint:gosec // G304: caller-supplied media path
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "read_media_file").
			Context("path", path).
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVBuffered(ctx, file, chunkFrames, callback)
	case ".flac":
		return readFLACBuffered(ctx, file, chunkFrames, callback)
	default:
		return Info{}, errors.Newf("unsupported media file type: %s", filepath.Ext(path)).
			Category(errors.CategoryValidation).
			Context("operation", "read_media_file").
			Context("path", path).
			Build()
	}
}

// getAudioDivisor maps a bit depth to the float32 conversion divisor.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, errors.Newf("unsupported audio bit depth: %d", bitDepth).
			Category(errors.CategoryFileParsing).
			Context("operation", "convert_samples").
			Context("bit_depth", bitDepth).
			Build()
	}
}

// emitChunks drains full chunks from the accumulator and returns the
// remainder. Used by both format readers.
func emitChunks(ctx context.Context, accumulated []float32, chunkSamples int, callback ChunkCallback) ([]float32, error) {
	for len(accumulated) >= chunkSamples {
		if err := ctx.Err(); err != nil {
			return accumulated, errors.New(err).
				Category(errors.CategoryCancellation).
				Context("operation", "read_media_file").
				Build()
		}
		if err := callback(accumulated[:chunkSamples]); err != nil {
			return accumulated, err
		}
		accumulated = accumulated[chunkSamples:]
	}
	return accumulated, nil
}
