package mediafile

import (
	"context"
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"
	"github.com/tphakala/mixcore/internal/errors"
)

func readFLACInfo(file *os.File) (Info, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("operation", "read_flac_info").
			Build()
	}

	return Info{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}

func readFLACBuffered(ctx context.Context, file *os.File, chunkFrames int, callback ChunkCallback) (Info, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return Info{}, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("operation", "read_flac_file").
			Build()
	}

	info := Info{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}

	log.Debug("reading FLAC file",
		"path", file.Name(),
		"sample_rate", info.SampleRate,
		"bit_depth", info.BitDepth,
		"channels", info.NumChannels)

	divisor, err := getAudioDivisor(info.BitDepth)
	if err != nil {
		return Info{}, err
	}

	bytesPerSample := info.BitDepth / 8
	chunkSamples := chunkFrames * info.NumChannels

	var currentChunk []float32

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return Info{}, errors.New(err).
				Category(errors.CategoryFileParsing).
				Context("operation", "read_flac_file").
				Build()
		}

		// Stride one sample at a time to keep every channel of the
		// interleaved frame
		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch info.BitDepth {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				// Sign-extend via the top byte
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
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
