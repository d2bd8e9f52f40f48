// Package wavio decodes and encodes uncompressed RIFF/WAVE PCM files at
// the pipeline's input/output boundary.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Decoded holds the raw PCM frames of an accepted input file, still
// interleaved by channel and not yet down-mixed or resampled.
type Decoded struct {
	Frames     []float32 // interleaved, one float per sample per channel
	Channels   int
	SampleRate int
}

// bitDepthDivisor maps integer PCM bit depths to the divisor used to
// convert a decoded integer sample to a float32 in [-1, 1]. Decode
// accepts only the 16-bit entry, whose divisor is the same 32767 scale
// Encode quantizes with.
var bitDepthDivisor = map[int]float32{
	16: 32767.0,
	24: 8388608.0,
	32: 2147483648.0,
}

// Decode reads path as RIFF/WAVE PCM. Accepted: 16-bit signed integer or
// 32-bit floating-point sample formats, 1 or 2 channels, any positive
// sample rate. Anything else is rejected with a validation error.
func Decode(path string) (Decoded, error) {
	file, err := os.Open(path) //nolint:gosec // path is an operator-supplied CLI argument
	if err != nil {
		return Decoded{}, pipeerrors.New(err).
			Category(pipeerrors.CategoryFileIO).
			Component("wavio").
			Context("path", path).
			Build()
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return Decoded{}, pipeerrors.ValidationError(fmt.Sprintf("%s is not a valid WAV file", path))
	}

	if decoder.NumChans == 0 || decoder.NumChans > 2 {
		return Decoded{}, pipeerrors.ValidationError(fmt.Sprintf("unsupported channel count %d, only mono and stereo are accepted", decoder.NumChans))
	}
	if decoder.SampleRate == 0 {
		return Decoded{}, pipeerrors.ValidationError("input sample rate must be positive")
	}

	isFloat := decoder.WavAudioFormat == 3
	var divisor float32
	if !isFloat {
		var ok bool
		divisor, ok = bitDepthDivisor[int(decoder.BitDepth)]
		if !ok || decoder.BitDepth != 16 {
			return Decoded{}, pipeerrors.ValidationError(fmt.Sprintf("unsupported bit depth %d, only 16-bit integer or 32-bit float are accepted", decoder.BitDepth))
		}
	} else if decoder.BitDepth != 32 {
		return Decoded{}, pipeerrors.ValidationError(fmt.Sprintf("unsupported floating-point bit depth %d", decoder.BitDepth))
	}

	// go-audio/wav's PCMBuffer reads IEEE-float (format 3) samples into
	// IntBuffer.Data as the raw 32-bit pattern, not a scaled integer, so
	// the float path needs a bit reinterpretation instead of a divisor.
	toSample := func(raw int) float32 {
		return float32(raw) / divisor
	}
	if isFloat {
		toSample = func(raw int) float32 {
			return math.Float32frombits(uint32(int32(raw)))
		}
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)

	const chunkFrames = 8192
	buf := &audio.IntBuffer{
		Data:   make([]int, chunkFrames*channels),
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: channels},
	}

	var frames []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return Decoded{}, pipeerrors.New(err).
				Category(pipeerrors.CategoryFileIO).
				Component("wavio").
				Context("path", path).
				Build()
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			frames = append(frames, toSample(sample))
		}
	}

	return Decoded{Frames: frames, Channels: channels, SampleRate: sampleRate}, nil
}

// Encode writes mono float32 samples (clamped internally during
// quantization) as a 16-bit signed PCM WAV file at sampleRate.
func Encode(path string, samples []float32, sampleRate int) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pipeerrors.New(err).
				Category(pipeerrors.CategoryOutput).
				Component("wavio").
				Context("path", path).
				Build()
		}
	}

	file, err := os.Create(path) //nolint:gosec // path is an operator-supplied CLI argument
	if err != nil {
		return pipeerrors.New(err).
			Category(pipeerrors.CategoryOutput).
			Component("wavio").
			Context("path", path).
			Build()
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)

	intData := make([]int, len(samples))
	for i, x := range samples {
		intData[i] = int(quantize(x))
	}

	buf := &audio.IntBuffer{
		Data:   intData,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: 1},
	}
	if err := encoder.Write(buf); err != nil {
		return pipeerrors.New(err).
			Category(pipeerrors.CategoryOutput).
			Component("wavio").
			Context("path", path).
			Build()
	}
	if err := encoder.Close(); err != nil {
		return pipeerrors.New(err).
			Category(pipeerrors.CategoryOutput).
			Component("wavio").
			Context("path", path).
			Build()
	}

	return nil
}

func quantize(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(math.Round(float64(x) * 32767))
}
