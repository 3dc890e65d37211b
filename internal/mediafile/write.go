package mediafile

import (
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/mixcore/internal/errors"
)

// WriteWAV saves interleaved float32 samples as a 16-bit PCM WAV file at
// the given path, creating parent directories as needed. Samples are
// clamped to [-1, 1] before conversion.
func WriteWAV(path string, sampleRate, numChannels int, samples []float32) error {
	if sampleRate <= 0 || numChannels <= 0 {
		return errors.Newf("invalid WAV format: sample rate %d, channels %d", sampleRate, numChannels).
			Category(errors.CategoryValidation).
			Context("operation", "write_wav").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav").
			Build()
	}

	outFile, err := os.Create(path) //nolint:gosec // G304: path is chosen by the caller
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav").
			Build()
	}

	enc := wav.NewEncoder(outFile, sampleRate, 16, numChannels, 1)

	intSamples := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		intSamples[i] = int(s * 32767)
	}

	buf := &audio.IntBuffer{
		Data:   intSamples,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: numChannels},
	}
	if err := enc.Write(buf); err != nil {
		outFile.Close()
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav").
			Build()
	}

	// Encoder close patches the header sizes, so it must run while the
	// file is still open
	if err := enc.Close(); err != nil {
		outFile.Close()
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav").
			Build()
	}

	if err := outFile.Close(); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav").
			Build()
	}

	return nil
}
