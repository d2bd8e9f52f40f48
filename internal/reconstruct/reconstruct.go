// Package reconstruct stitches processed segments back into one
// continuous waveform via overlap-add crossfade, applies the end
// fadeout and silent tail, and performs global output normalization.
package reconstruct

import (
	"math"

	"github.com/tphakala/denoise-pipeline/internal/segment"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Config carries the sizing parameters the reconstructor needs; these
// must match the Segmenter's Config for the input that produced segs.
type Config struct {
	SegmentSize int
	OverlapSize int
	HopSize     int
	// SkipNormalize disables the global safety-net gain (§4.7) after
	// stitching. Zero value (false) matches the CLI default of always
	// normalizing; set true only to isolate overlap-add behavior.
	SkipNormalize bool
}

// Build stitches an ordered, strictly-increasing-index list of processed
// segments into one output buffer, applies the end fadeout, zeroes the
// silent tail, and runs global normalization. segs must already be
// sorted by Index (the worker pool guarantees this).
func Build(cfg Config, segs []segment.Processed) ([]float32, error) {
	if len(segs) == 0 {
		return nil, nil
	}

	if err := checkOrder(segs); err != nil {
		return nil, err
	}

	length := segs[len(segs)-1].EndSample
	out := make([]float32, length)

	fade := crossfadeWindow(cfg.OverlapSize)

	for k, s := range segs {
		if k == 0 {
			copy(out[s.StartSample:s.StartSample+s.Length], s.Payload[:s.Length])
			continue
		}

		ovStart := k * cfg.HopSize
		for i := 0; i < cfg.OverlapSize && i < s.Length; i++ {
			out[ovStart+i] = out[ovStart+i]*fade[i] + s.Payload[i]*(1-fade[i])
		}
		for i := cfg.OverlapSize; i < s.Length; i++ {
			out[ovStart+i] = s.Payload[i]
		}
	}

	applyEndFadeout(out, cfg.SegmentSize)
	applySilentTail(out)
	if !cfg.SkipNormalize {
		Normalize(out)
	}

	return out, nil
}

func checkOrder(segs []segment.Processed) error {
	for i := 1; i < len(segs); i++ {
		if segs[i].Index <= segs[i-1].Index {
			return pipeerrors.Newf("non-monotonic segment index: %d follows %d", segs[i].Index, segs[i-1].Index).
				Category(pipeerrors.CategoryProcessing).
				Component("reconstruct").
				Context("prev_index", segs[i-1].Index).
				Context("index", segs[i].Index).
				Build()
		}
	}
	return nil
}

// crossfadeWindow precomputes the raised-cosine curve
// fade[i] = 0.5*(1+cos(pi*i/(O-1))) for i in [0, O), starting at 1 and
// ending at 0. For O <= 1 no meaningful curve exists; callers treat
// overlapSize == 0 as "no crossfade" and never index the window.
func crossfadeWindow(overlapSize int) []float32 {
	if overlapSize <= 0 {
		return nil
	}
	fade := make([]float32, overlapSize)
	if overlapSize == 1 {
		fade[0] = 1
		return fade
	}
	for i := 0; i < overlapSize; i++ {
		fade[i] = float32(0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(overlapSize-1))))
	}
	return fade
}

// applyEndFadeout suppresses boundary transients introduced by
// zero-padding the final segment: a 15% cosine-squared decay with an
// exponential acceleration over the final 20% of its span.
func applyEndFadeout(out []float32, segmentSize int) {
	L := len(out)
	F := int(float64(segmentSize) * 0.15)
	if F <= 0 || L <= F {
		return
	}

	for i := 0; i < F; i++ {
		p := L - F + i
		progress := float64(i) / float64(F)
		base := math.Cos(progress * progress * math.Pi / 2)

		factor := base
		if progress > 0.8 {
			factor = base * math.Exp(-((progress-0.8)/0.2)*4)
		}
		out[p] *= float32(factor)
	}
}

// applySilentTail zeroes the final min(5, L) samples unconditionally.
func applySilentTail(out []float32) {
	n := 5
	if len(out) < n {
		n = len(out)
	}
	for i := len(out) - n; i < len(out); i++ {
		out[i] = 0
	}
}

// Normalize applies the global safety-net gain: if the stitched RMS is
// below 0.1 but the signal is still audible (peak > 0.001), boost it by
// min(0.2/rms, 0.95/peak) clamped to [1.5, 8.0].
func Normalize(out []float32) {
	if len(out) == 0 {
		return
	}

	var sumSq float64
	var peak float32
	for _, x := range out {
		sumSq += float64(x) * float64(x)
		a := x
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sumSq / float64(len(out)))

	if rms < 0.1 && peak > 0.001 {
		gain := math.Min(0.2/rms, 0.95/float64(peak))
		gain = clampF64(gain, 1.5, 8.0)
		for i, x := range out {
			v := float32(float64(x) * gain)
			out[i] = clampSample(v)
		}
	}
}

func clampF64(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampSample(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
