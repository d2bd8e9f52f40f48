package cpuspec

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOptimalThreadCountNeverExceedsAvailableCPUs(t *testing.T) {
	spec := GetCPUSpec()
	threads := spec.GetOptimalThreadCount()

	assert.LessOrEqual(t, threads, runtime.NumCPU())
	assert.Greater(t, threads, 0)
}

func TestDeterminePerformanceCoresKnownIntel(t *testing.T) {
	assert.Equal(t, 8, determinePerformanceCores("12th Gen Intel(R) Core(TM) i9-12900K"))
	assert.Equal(t, 6, determinePerformanceCores("13th Gen Intel(R) Core(TM) i5-13600K"))
	assert.Equal(t, 0, determinePerformanceCores("AMD Ryzen 9 7950X"))
}

func TestDeterminePerformanceCoresAppleSilicon(t *testing.T) {
	assert.Equal(t, 4, determinePerformanceCores("Apple M1"))
	assert.Equal(t, 12, determinePerformanceCores("Apple M3 Max"))
}
