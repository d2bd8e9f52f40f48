package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearIdentityAtEqualRates(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := Linear(in, 16000, 16000)
	assert.Equal(t, in, out)
}

func TestLinearUpsampleDoublesLength(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	out := Linear(in, 8000, 16000)
	assert.Equal(t, 8, len(out))
	assert.InDelta(t, 0.0, out[0], 1e-6)
}

func TestLinearDownsampleRightBoundarySaturates(t *testing.T) {
	in := make([]float32, 100)
	for i := range in {
		in[i] = float32(i)
	}
	out := Linear(in, 16000, 8000)
	assert.InDelta(t, float64(in[len(in)-1]), float64(out[len(out)-1]), 2.0)
}

func TestLinearSineRoundTripLowMSE(t *testing.T) {
	const srcRate = 48000
	const dstRate = 16000
	n := srcRate
	in := make([]float32, n)
	for i := 0; i < n; i++ {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(srcRate)))
	}

	down := Linear(in, srcRate, dstRate)
	up := Linear(down, dstRate, srcRate)

	m := len(in)
	if len(up) < m {
		m = len(up)
	}
	var sumSq float64
	for i := 0; i < m; i++ {
		d := float64(in[i] - up[i])
		sumSq += d * d
	}
	mse := sumSq / float64(m)
	assert.Less(t, mse, 1e-1)
}
