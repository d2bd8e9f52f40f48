package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownMixStereoAverages(t *testing.T) {
	frames := []float32{1, 0, -1, 0, 0.5, 0.5}
	out, err := DownMix(frames, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5, 0.5}, out)
}

func TestDownMixMonoIsIdentity(t *testing.T) {
	frames := []float32{0.1, 0.2, 0.3}
	out, err := DownMix(frames, 1)
	require.NoError(t, err)
	assert.Equal(t, frames, out)
}

func TestDownMixRejectsMisalignedLength(t *testing.T) {
	_, err := DownMix([]float32{1, 2, 3}, 2)
	require.Error(t, err)
}

func TestConditionRejectsEmptyInput(t *testing.T) {
	_, err := Condition(nil, 1, 16000)
	require.Error(t, err)
}

func TestConditionSanitizesNonFiniteSamples(t *testing.T) {
	frames := []float32{float32(math.NaN()), float32(math.Inf(1)), 0.5}
	buf, err := Condition(frames, 1, 16000)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0.5}, buf.Samples)
	assert.Equal(t, 16000, buf.SampleRate)
}
