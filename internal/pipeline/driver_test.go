package pipeline

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/denoise-pipeline/internal/inference"
	"github.com/tphakala/denoise-pipeline/internal/wavio"
)

func writeSineWav(t *testing.T, path string, sampleRate, numSamples int, freq, amplitude float64) {
	t.Helper()
	samples := make([]float32, numSamples)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	require.NoError(t, wavio.Encode(path, samples, sampleRate))
}

func baseConfig(inPath, outPath string) Config {
	return Config{
		InputPath:             inPath,
		OutputPath:            outPath,
		TargetSampleRate:      16000,
		SegmentSize:           2000,
		Overlap:               0.1,
		TotalInferenceThreads: 2,
		NumWorkers:            2,
		MaxRetries:            2,
		AGCEnabled:            true,
		NormalizeEnabled:      true,
	}
}

func TestRunIdentityModelPreservesLength(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")

	writeSineWav(t, inPath, 16000, 16000, 440, 1.0)

	cfg := baseConfig(inPath, outPath)
	driver, err := New(cfg, &inference.StubFactory{}, nil, nil)
	require.NoError(t, err)
	defer driver.Close()

	metrics, err := driver.Run()
	require.NoError(t, err)
	assert.Equal(t, 16000, metrics.InputSamples)

	decoded, err := wavio.Decode(outPath)
	require.NoError(t, err)
	assert.Equal(t, 16000, len(decoded.Frames))

	for i := len(decoded.Frames) - 5; i < len(decoded.Frames); i++ {
		assert.Equal(t, float32(0), decoded.Frames[i])
	}
}

func TestRunSilentInputStaysSilent(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")

	writeSineWav(t, inPath, 16000, 32000, 440, 0.0)

	cfg := baseConfig(inPath, outPath)
	driver, err := New(cfg, &inference.StubFactory{}, nil, nil)
	require.NoError(t, err)
	defer driver.Close()

	_, err = driver.Run()
	require.NoError(t, err)

	decoded, err := wavio.Decode(outPath)
	require.NoError(t, err)
	for _, x := range decoded.Frames {
		assert.Equal(t, float32(0), x)
	}
}

func TestRunSingleWorkerMatchesParallelOutput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outSerial := filepath.Join(dir, "serial.wav")
	outParallel := filepath.Join(dir, "parallel.wav")

	writeSineWav(t, inPath, 16000, 20000, 220, 0.05)

	serialCfg := baseConfig(inPath, outSerial)
	serialCfg.NumWorkers = 1
	serialDriver, err := New(serialCfg, &inference.StubFactory{}, nil, nil)
	require.NoError(t, err)
	defer serialDriver.Close()
	_, err = serialDriver.Run()
	require.NoError(t, err)

	parallelCfg := baseConfig(inPath, outParallel)
	parallelCfg.NumWorkers = 4
	parallelDriver, err := New(parallelCfg, &inference.StubFactory{}, nil, nil)
	require.NoError(t, err)
	defer parallelDriver.Close()
	_, err = parallelDriver.Run()
	require.NoError(t, err)

	serialOut, err := wavio.Decode(outSerial)
	require.NoError(t, err)
	parallelOut, err := wavio.Decode(outParallel)
	require.NoError(t, err)

	assert.Equal(t, serialOut.Frames, parallelOut.Frames)
}

func TestSelfTestSucceedsWithStubSession(t *testing.T) {
	cfg := Config{
		SegmentSize:           1000,
		Overlap:               0.1,
		TotalInferenceThreads: 2,
		NumWorkers:            2,
		MaxRetries:            1,
	}
	require.NoError(t, SelfTest(cfg))
}
