package agc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyLeavesLoudSignalUnchanged(t *testing.T) {
	d := []float32{0.5, -0.5, 0.4}
	out := Apply(append([]float32(nil), d...))
	assert.Equal(t, d, out)
}

func TestApplyLeavesSilenceUnchanged(t *testing.T) {
	d := []float32{0, 0, 0.0005, -0.0005}
	out := Apply(append([]float32(nil), d...))
	assert.Equal(t, d, out)
}

func TestApplyAmplifiesQuietSegment(t *testing.T) {
	d := []float32{0.05, -0.05, 0.02}
	out := Apply(append([]float32(nil), d...))

	var peak float32
	for _, x := range out {
		if a := float32(math.Abs(float64(x))); a > peak {
			peak = a
		}
	}
	// peak 0.05 -> gain clamp(1/0.05, 3, 10) == 10 -> amplified peak 0.5
	assert.InDelta(t, 0.5, float64(peak), 1e-6)
}

func TestApplySanitizesNonFiniteAndClamps(t *testing.T) {
	d := []float32{float32(math.NaN()), float32(math.Inf(1)), 2.0, -2.0}
	out := Apply(d)
	assert.Equal(t, float32(0), out[0])
	for _, x := range out {
		assert.LessOrEqual(t, x, float32(1.0))
		assert.GreaterOrEqual(t, x, float32(-1.0))
	}
}

func TestApplyGainIsClampedToTenX(t *testing.T) {
	d := []float32{0.01, 0, 0}
	out := Apply(d)
	assert.InDelta(t, 0.1, float64(out[0]), 1e-6)
}
