// Package segment slices a conditioned mono stream into overlapping
// fixed-size windows for the inference pipeline, and carries the
// per-segment payload after automatic gain control has been applied.
package segment

import (
	"fmt"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Segment describes one fixed-size window into the conditioned stream.
// Payload is always of length SegmentSize: either a genuine full window,
// or the final window right-zero-padded. Length records the true,
// possibly truncated, sample count for reconstruction.
type Segment struct {
	Index       int
	StartSample int
	EndSample   int
	Length      int
	IsComplete  bool
	Payload     []float32 // length == segmentSize, configured at Segmenter construction
}

// Processed is a Segment whose Payload has gone through automatic gain
// control. It carries only the fields the reconstructor needs.
type Processed struct {
	Index       int
	StartSample int
	EndSample   int
	Length      int
	IsComplete  bool
	Payload     []float32
}

// Config holds the derived sizing parameters for a Segmenter.
type Config struct {
	SegmentSize int
	OverlapSize int
	HopSize     int
}

// NewConfig validates segmentSize/overlapRatio and derives OverlapSize
// and HopSize per spec: overlap_size = floor(segment_size * overlap_ratio),
// hop_size = segment_size - overlap_size. hop_size must be positive;
// overlap_size may be 0, which the reconstructor treats as plain
// concatenation.
func NewConfig(segmentSize int, overlapRatio float64) (Config, error) {
	if segmentSize <= 0 {
		return Config{}, pipeerrors.ConfigurationError(fmt.Sprintf("segment size must be positive, got %d", segmentSize))
	}
	if segmentSize%2 != 0 {
		return Config{}, pipeerrors.ConfigurationError(fmt.Sprintf("segment size must be even, got %d", segmentSize))
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		return Config{}, pipeerrors.ConfigurationError(fmt.Sprintf("overlap ratio must be in [0, 1), got %f", overlapRatio))
	}

	overlapSize := int(float64(segmentSize) * overlapRatio)
	hopSize := segmentSize - overlapSize

	if hopSize <= 0 {
		return Config{}, pipeerrors.ConfigurationError(fmt.Sprintf("derived hop size must be positive, got %d", hopSize))
	}

	return Config{SegmentSize: segmentSize, OverlapSize: overlapSize, HopSize: hopSize}, nil
}

// Segmenter slices a mono sample stream into a dense, ordered sequence
// of Segments according to its Config.
type Segmenter struct {
	cfg Config
}

// New creates a Segmenter for the given configuration.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Split produces the ordered segment list for samples. An empty input
// yields an empty segment list (the pipeline short-circuits to empty
// output); an input shorter than one segment yields a single incomplete
// segment starting at 0.
func (s *Segmenter) Split(samples []float32) []Segment {
	n := len(samples)
	if n == 0 {
		return nil
	}

	var segments []Segment
	for start, idx := 0, 0; start < n; start, idx = start+s.cfg.HopSize, idx+1 {
		end := start + s.cfg.SegmentSize
		if end > n {
			end = n
		}
		length := end - start

		payload := make([]float32, s.cfg.SegmentSize)
		copy(payload, samples[start:end])

		segments = append(segments, Segment{
			Index:       idx,
			StartSample: start,
			EndSample:   end,
			Length:      length,
			IsComplete:  length == s.cfg.SegmentSize,
			Payload:     payload,
		})
	}

	return segments
}
