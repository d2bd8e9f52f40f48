// Package audio provides the conditioned mono sample buffer that flows
// through the rest of the pipeline: down-mixed, resampled, and
// guaranteed finite.
package audio

import (
	"fmt"
	"math"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Buffer is a contiguous, read-only view of mono 32-bit floating-point
// samples in [-1, 1], tagged with its sample rate in Hz.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Len returns the number of samples in the buffer.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// DownMix averages interleaved multi-channel frames into a single mono
// channel. frames must have length a multiple of channels.
func DownMix(frames []float32, channels int) ([]float32, error) {
	if channels <= 0 {
		return nil, pipeerrors.ValidationError(fmt.Sprintf("channel count must be positive, got %d", channels))
	}
	if len(frames)%channels != 0 {
		return nil, pipeerrors.ValidationError(fmt.Sprintf("frame data length %d is not a multiple of channel count %d", len(frames), channels))
	}

	if channels == 1 {
		out := make([]float32, len(frames))
		copy(out, frames)
		return out, nil
	}

	numFrames := len(frames) / channels
	out := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += frames[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

// Condition down-mixes and validates a decoded multi-channel waveform,
// producing a mono Buffer ready for resampling. Resampling to the target
// rate is left to the resample package; Condition only performs the
// down-mix and the emptiness/finiteness check.
func Condition(frames []float32, channels, sampleRate int) (Buffer, error) {
	if len(frames) == 0 {
		return Buffer{}, pipeerrors.ValidationError("input audio is empty")
	}

	mono, err := DownMix(frames, channels)
	if err != nil {
		return Buffer{}, err
	}
	if len(mono) == 0 {
		return Buffer{}, pipeerrors.ValidationError("input audio is empty")
	}

	sanitizeFinite(mono)

	return Buffer{Samples: mono, SampleRate: sampleRate}, nil
}

// sanitizeFinite replaces non-finite samples with 0 in place, satisfying
// the SampleBuffer invariant that every sample is finite after
// conditioning.
func sanitizeFinite(samples []float32) {
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			samples[i] = 0
		}
	}
}
