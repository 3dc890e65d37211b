package mediafile

import (
	"context"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/tphakala/mixcore/internal/errors"
)

func readWAVInfo(file *os.File) (Info, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return Info{}, errors.Newf("invalid WAV file format").
			Category(errors.CategoryFileParsing).
			Context("operation", "read_wav_info").
			Build()
	}

	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return Info{}, errors.Newf("unsupported bit depth: %d", decoder.BitDepth).
			Category(errors.CategoryFileParsing).
			Context("operation", "read_wav_info").
			Context("bit_depth", int(decoder.BitDepth)).
			Build()
	}

	if decoder.NumChans < 1 {
		return Info{}, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Category(errors.CategoryFileParsing).
			Context("operation", "read_wav_info").
			Context("channels", int(decoder.NumChans)).
			Build()
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "read_wav_info").
			Build()
	}

	// Container overhead is a few dozen bytes, the sample count from raw
	// file size is an upper-bound estimate
	bytesPerSample := int(decoder.BitDepth / 8)
	totalSamples := int(fileInfo.Size()) / bytesPerSample / int(decoder.NumChans)

	return Info{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func readWAVBuffered(ctx context.Context, file *os.File, chunkFrames int, callback ChunkCallback) (Info, error) {
	info, err := readWAVInfo(file)
	if err != nil {
		return Info{}, err
	}

	// readWAVInfo consumed the header, rewind for the streaming decoder
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "read_wav_file").
			Build()
	}

	log.Debug("reading WAV file",
		"path", file.Name(),
		"sample_rate", info.SampleRate,
		"bit_depth", info.BitDepth,
		"channels", info.NumChannels)

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Info{}, errors.Newf("input is not a valid WAV audio file").
			Category(errors.CategoryFileParsing).
			Context("operation", "read_wav_file").
			Build()
	}

	divisor, err := getAudioDivisor(info.BitDepth)
	if err != nil {
		return Info{}, err
	}

	chunkSamples := chunkFrames * info.NumChannels

	var currentChunk []float32
	buf := &audio.IntBuffer{
		Data:   make([]int, chunkSamples),
		Format: &audio.Format{SampleRate: info.SampleRate, NumChannels: info.NumChannels},
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return Info{}, errors.New(err).
				Category(errors.CategoryFileParsing).
				Context("operation", "read_wav_file").
				Build()
		}

		if n == 0 {
			break
		}

		for _, sample := range buf.Data[:n] {
			currentChunk = append(currentChunk, float32(sample)/divisor)
		}

		currentChunk, err = emitChunks(ctx, currentChunk, chunkSamples, callback)
		if err != nil {
			return Info{}, err
		}
	}

	// Final partial chunk is delivered unpadded
	if len(currentChunk) > 0 {
		if err := callback(currentChunk); err != nil {
			return Info{}, err
		}
	}

	return info, nil
}
