package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)

	s, err := Resolve(v)
	require.NoError(t, err)

	assert.Equal(t, 16000, s.Audio.TargetSampleRate)
	assert.Equal(t, 16000, s.Segment.Size)
	assert.InDelta(t, 0.1, s.Segment.OverlapRatio, 1e-9)
	assert.True(t, s.AGC.Enabled)
	assert.True(t, s.Normalize.Enabled)
}

func TestValidateRejectsOverlapRatioOutOfRange(t *testing.T) {
	s := &Settings{}
	s.Segment.Size = 1024
	s.Segment.OverlapRatio = 1.0
	s.Audio.TargetSampleRate = 16000

	err := s.Validate()
	require.Error(t, err)
}

func TestValidateRejectsNegativeOverlapRatio(t *testing.T) {
	s := &Settings{}
	s.Segment.Size = 1024
	s.Segment.OverlapRatio = -0.1
	s.Audio.TargetSampleRate = 16000

	err := s.Validate()
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveSegmentSize(t *testing.T) {
	s := &Settings{}
	s.Segment.Size = 0
	s.Audio.TargetSampleRate = 16000

	err := s.Validate()
	require.Error(t, err)
}

func TestValidateRejectsOddSegmentSize(t *testing.T) {
	s := &Settings{}
	s.Segment.Size = 1023
	s.Segment.OverlapRatio = 0.1
	s.Audio.TargetSampleRate = 16000

	err := s.Validate()
	require.Error(t, err)
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestMergeConfigFileOverridesDefaultsNotEmptyPath(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("segment:\n  size: 8000\n"), 0o600))

	require.NoError(t, MergeConfigFile(v, path))
	require.NoError(t, MergeConfigFile(v, ""))

	s, err := Resolve(v)
	require.NoError(t, err)
	assert.Equal(t, 8000, s.Segment.Size)
	assert.Equal(t, 16000, s.Audio.TargetSampleRate)
}

func TestMergeConfigFileMissingPathErrors(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)

	err = MergeConfigFile(v, "/nonexistent/path/config.yaml")
	require.Error(t, err)
}
