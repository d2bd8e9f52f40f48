// Package agc implements per-segment automatic gain control: the model
// frequently emits ultra-low-amplitude clean speech, and without
// compensation the stitched waveform would be inaudible.
package agc

import "math"

// Apply sanitizes non-finite samples to 0, clamps to [-1, 1], and if the
// resulting peak lies in (0.001, 0.3) applies a linear gain of
// clamp(1/peak, 3, 10) followed by a re-clamp. Mutates d in place and
// also returns it for chaining.
func Apply(d []float32) []float32 {
	sanitizeAndClamp(d)

	peak := peakOf(d)
	if peak > 0.001 && peak < 0.3 {
		gain := clamp(1.0/peak, 3.0, 10.0)
		for i := range d {
			d[i] *= gain
		}
		sanitizeAndClamp(d)
	}

	return d
}

func sanitizeAndClamp(d []float32) {
	for i, x := range d {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			x = 0
		}
		d[i] = clampSample(x)
	}
}

func peakOf(d []float32) float32 {
	var peak float32
	for _, x := range d {
		a := x
		if a < 0 {
			a = -a
		}
		if a > peak {
			peak = a
		}
	}
	return peak
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

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
