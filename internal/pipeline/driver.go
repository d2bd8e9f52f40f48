// Package pipeline orchestrates input conditioning, segmentation,
// parallel inference, per-segment AGC, and overlap-add reconstruction
// into one driver that processes a single file end to end.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/denoise-pipeline/internal/agc"
	"github.com/tphakala/denoise-pipeline/internal/audio"
	"github.com/tphakala/denoise-pipeline/internal/inference"
	"github.com/tphakala/denoise-pipeline/internal/observability"
	"github.com/tphakala/denoise-pipeline/internal/reconstruct"
	"github.com/tphakala/denoise-pipeline/internal/resample"
	"github.com/tphakala/denoise-pipeline/internal/segment"
	"github.com/tphakala/denoise-pipeline/internal/tensor"
	"github.com/tphakala/denoise-pipeline/internal/wavio"
	"github.com/tphakala/denoise-pipeline/internal/worker"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// Config carries every knob the driver needs for one run. It is the
// runtime-resolved form of internal/conf.Settings plus CLI-only fields
// (input/output paths) that don't belong in a reusable config file.
type Config struct {
	InputPath  string
	OutputPath string

	TargetSampleRate int

	SegmentSize int
	Overlap     float64

	TotalInferenceThreads int
	NumWorkers            int
	MaxRetries            int
	RetryDelay            time.Duration
	InferenceTimeout      time.Duration

	AGCEnabled       bool
	NormalizeEnabled bool
}

// Metrics summarizes one file's processing run, returned to the caller
// for logging and for the optional Prometheus exporter.
type Metrics struct {
	JobID          string
	InputSamples   int
	OutputSamples  int
	SegmentCount   int
	WorkerCount    int
	WallClock      time.Duration
	AverageInferMS float64
	RealTimeFactor float64
}

// Driver orchestrates one file through the full pipeline. A Driver owns
// the worker pool for its lifetime: construct once, call Run to process
// cfg.InputPath, Close when done.
type Driver struct {
	cfg     Config
	pool    *worker.Pool
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New builds a Driver, spawning its worker pool immediately (so warm-up
// cost is paid once, not per file).
func New(cfg Config, factory inference.Factory, obsMetrics *observability.Metrics, logger *slog.Logger) (*Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}

	segCfg, err := segment.NewConfig(cfg.SegmentSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}

	numWorkers := cfg.NumWorkers
	if numWorkers < 1 {
		return nil, pipeerrors.ConfigurationError("worker count must be at least 1")
	}

	pool, err := worker.New(worker.Config{
		NumWorkers:            numWorkers,
		TotalInferenceThreads: cfg.TotalInferenceThreads,
		MaxRetries:            cfg.MaxRetries,
		RetryDelay:            cfg.RetryDelay,
		InferenceTimeout:      cfg.InferenceTimeout,
		WarmUp:                true,
		SegmentSize:           segCfg.SegmentSize,
	}, factory)
	if err != nil {
		return nil, err
	}

	return &Driver{cfg: cfg, pool: pool, metrics: obsMetrics, logger: logger}, nil
}

// Close shuts down the worker pool, joining every worker goroutine.
func (d *Driver) Close() {
	d.pool.Close()
}

// Run processes one input file end to end: read -> condition -> segment
// -> encode-and-dispatch -> drain -> sort -> AGC -> reconstruct ->
// end-fadeout -> normalize -> write. It returns early with an error and
// writes nothing on any unrecoverable failure.
func (d *Driver) Run() (Metrics, error) {
	jobID := uuid.NewString()
	logger := d.logger.With("job_id", jobID, "input", d.cfg.InputPath)
	start := time.Now()

	decoded, err := wavio.Decode(d.cfg.InputPath)
	if err != nil {
		return Metrics{}, err
	}
	logger.Debug("decoded input", "channels", decoded.Channels, "sample_rate", decoded.SampleRate, "frames", len(decoded.Frames)/decoded.Channels)

	conditioned, err := audio.Condition(decoded.Frames, decoded.Channels, decoded.SampleRate)
	if err != nil {
		return Metrics{}, err
	}

	resampled := resample.Linear(conditioned.Samples, conditioned.SampleRate, d.cfg.TargetSampleRate)
	logger.Debug("resampled", "from_rate", conditioned.SampleRate, "to_rate", d.cfg.TargetSampleRate, "samples", len(resampled))

	segCfg, err := segment.NewConfig(d.cfg.SegmentSize, d.cfg.Overlap)
	if err != nil {
		return Metrics{}, err
	}
	segmenter := segment.New(segCfg)
	segs := segmenter.Split(resampled)

	if len(segs) == 0 {
		if err := wavio.Encode(d.cfg.OutputPath, nil, d.cfg.TargetSampleRate); err != nil {
			return Metrics{}, err
		}
		return Metrics{JobID: jobID, InputSamples: len(resampled), WallClock: time.Since(start)}, nil
	}

	items := make([]worker.Item, len(segs))
	for i, s := range segs {
		items[i] = worker.Item{SegmentIndex: s.Index, Tensor: tensor.Encode(s.Payload, segCfg.SegmentSize)}
	}

	results, err := d.pool.ProcessAll(items)
	if err != nil {
		if d.metrics != nil {
			d.metrics.InferenceErrors.Inc()
		}
		return Metrics{}, err
	}

	var totalInferMS float64
	processed := make([]segment.Processed, len(results))
	for i, r := range results {
		totalInferMS += r.InferenceTimeMS
		if d.metrics != nil {
			d.metrics.SegmentsProcessed.Inc()
			d.metrics.InferenceDuration.Observe(r.InferenceTimeMS / 1000.0)
		}

		payload := r.Payload
		if d.cfg.AGCEnabled {
			payload = agc.Apply(payload)
		}

		s := segs[i]
		processed[i] = segment.Processed{
			Index:       s.Index,
			StartSample: s.StartSample,
			EndSample:   s.EndSample,
			Length:      s.Length,
			IsComplete:  s.IsComplete,
			Payload:     payload,
		}
	}

	out, err := reconstruct.Build(reconstruct.Config{
		SegmentSize:   segCfg.SegmentSize,
		OverlapSize:   segCfg.OverlapSize,
		HopSize:       segCfg.HopSize,
		SkipNormalize: !d.cfg.NormalizeEnabled,
	}, processed)
	if err != nil {
		return Metrics{}, err
	}

	if err := wavio.Encode(d.cfg.OutputPath, out, d.cfg.TargetSampleRate); err != nil {
		return Metrics{}, err
	}

	wall := time.Since(start)
	avgInfer := totalInferMS / float64(len(results))
	durationSeconds := float64(len(resampled)) / float64(d.cfg.TargetSampleRate)
	rtf := 0.0
	if durationSeconds > 0 {
		rtf = wall.Seconds() / durationSeconds
	}

	if d.metrics != nil {
		d.metrics.FileDuration.Observe(wall.Seconds())
		d.metrics.RealTimeFactor.Set(rtf)
	}

	logger.Info("file processed",
		"segments", len(segs),
		"workers", d.cfg.NumWorkers,
		"wall_clock_ms", wall.Milliseconds(),
		"avg_inference_ms", avgInfer,
		"real_time_factor", rtf,
	)

	return Metrics{
		JobID:          jobID,
		InputSamples:   len(resampled),
		OutputSamples:  len(out),
		SegmentCount:   len(segs),
		WorkerCount:    d.cfg.NumWorkers,
		WallClock:      wall,
		AverageInferMS: avgInfer,
		RealTimeFactor: rtf,
	}, nil
}

// SelfTest exercises segmentation, inference, AGC and reconstruction
// against a synthetic constant signal through an in-process identity
// session, entirely in memory, used by --test-only to validate that a
// configuration is internally consistent before committing to a real
// model load. Its pool is built without the warm-up pass.
func SelfTest(cfg Config) error {
	segCfg, err := segment.NewConfig(cfg.SegmentSize, cfg.Overlap)
	if err != nil {
		return err
	}

	pool, err := worker.New(worker.Config{
		NumWorkers:            cfg.NumWorkers,
		TotalInferenceThreads: cfg.TotalInferenceThreads,
		MaxRetries:            cfg.MaxRetries,
		SegmentSize:           segCfg.SegmentSize,
	}, &inference.StubFactory{})
	if err != nil {
		return err
	}
	defer pool.Close()

	n := segCfg.SegmentSize * 3
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.1
	}

	segmenter := segment.New(segCfg)
	segs := segmenter.Split(samples)
	items := make([]worker.Item, len(segs))
	for i, s := range segs {
		items[i] = worker.Item{SegmentIndex: s.Index, Tensor: tensor.Encode(s.Payload, segCfg.SegmentSize)}
	}

	results, err := pool.ProcessAll(items)
	if err != nil {
		return err
	}

	processed := make([]segment.Processed, len(results))
	for i, r := range results {
		payload := agc.Apply(r.Payload)
		s := segs[i]
		processed[i] = segment.Processed{
			Index: s.Index, StartSample: s.StartSample, EndSample: s.EndSample,
			Length: s.Length, IsComplete: s.IsComplete, Payload: payload,
		}
	}

	out, err := reconstruct.Build(reconstruct.Config{
		SegmentSize: segCfg.SegmentSize,
		OverlapSize: segCfg.OverlapSize,
		HopSize:     segCfg.HopSize,
	}, processed)
	if err != nil {
		return err
	}
	if len(out) != n {
		return fmt.Errorf("self-test length mismatch: got %d, want %d", len(out), n)
	}

	return nil
}
