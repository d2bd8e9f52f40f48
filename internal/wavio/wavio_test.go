package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeThenDecodeRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	const sampleRate = 16000
	samples := make([]float32, sampleRate) // 1 second
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(sampleRate)))
	}

	require.NoError(t, Encode(path, samples, sampleRate))

	decoded, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Channels)
	assert.Equal(t, sampleRate, decoded.SampleRate)
	require.Len(t, decoded.Frames, len(samples))

	for i := range samples {
		assert.InDelta(t, float64(samples[i]), float64(decoded.Frames[i]), 1.0/32767.0+1e-6)
	}
}

func writeFloatWav(t *testing.T, path string, sampleRate int, samples []float32) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	const wavAudioFormatFloat = 3
	encoder := wav.NewEncoder(file, sampleRate, 32, 1, wavAudioFormatFloat)

	intData := make([]int, len(samples))
	for i, x := range samples {
		intData[i] = int(int32(math.Float32bits(x)))
	}

	buf := &audio.IntBuffer{
		Data:           intData,
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 32,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())
}

func TestDecode32BitFloatWav(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "float.wav")

	const sampleRate = 16000
	samples := make([]float32, sampleRate/10)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	writeFloatWav(t, path, sampleRate, samples)

	decoded, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Channels)
	assert.Equal(t, sampleRate, decoded.SampleRate)
	require.Len(t, decoded.Frames, len(samples))

	for i := range samples {
		assert.InDelta(t, float64(samples[i]), float64(decoded.Frames[i]), 1e-6)
		assert.False(t, math.IsInf(float64(decoded.Frames[i]), 0))
		assert.False(t, math.IsNaN(float64(decoded.Frames[i])))
	}
}

func TestDecodeRejectsMissingFile(t *testing.T) {
	_, err := Decode("/nonexistent/path/in.wav")
	require.Error(t, err)
}

func TestDecodeRejectsNonWavFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-wav.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o600))

	_, err := Decode(path)
	require.Error(t, err)
}

func TestEncodeCreatesOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.wav")

	require.NoError(t, Encode(path, []float32{0, 0.5, -0.5}, 8000))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
