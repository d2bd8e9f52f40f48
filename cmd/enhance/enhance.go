// Package enhance implements the "enhance" subcommand: run the
// denoising pipeline over a single input WAV file.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/denoise-pipeline/internal/cpuspec"
	"github.com/tphakala/denoise-pipeline/internal/errors"
	"github.com/tphakala/denoise-pipeline/internal/inference"
	"github.com/tphakala/denoise-pipeline/internal/logging"
	"github.com/tphakala/denoise-pipeline/internal/observability"
	"github.com/tphakala/denoise-pipeline/internal/pipeline"
)

// Command builds the "enhance" cobra command. v must already have
// defaults (see internal/conf.Load); the --config file is merged into v
// later, by the root command's PersistentPreRunE. Command binds its own
// flags on top and uses v as the single source of resolved settings.
func Command(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Apply the denoising model to a WAV file",
		Long:  `Run the segmentation -> parallel inference -> overlap-add reconstruction pipeline over a single WAV file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := setupFlags(cmd, v); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().String("model", v.GetString("inference.model_path"), "Model artifact path (required)")
	cmd.Flags().String("input", "", "Input WAV file (required)")
	cmd.Flags().String("output", v.GetString("output.path"), "Output WAV file")
	cmd.Flags().Int("sample-rate", v.GetInt("audio.target_sample_rate"), "Target sample rate in Hz; must equal the model's trained rate")
	cmd.Flags().Float64("overlap", v.GetFloat64("segment.overlap_ratio"), "Segment overlap ratio in [0, 1)")
	cmd.Flags().Int("segment-size", v.GetInt("segment.size"), "Segment size in samples; must be even and > 0")
	cmd.Flags().Int("inference-threads", v.GetInt("inference.threads"), "Total intra-op inference threads across all workers (0 = auto-detect)")
	cmd.Flags().Int("parallel-workers", v.GetInt("worker.count"), "Number of parallel inference workers (1 = serial mode)")
	cmd.Flags().Int("max-retries", v.GetInt("worker.max_retries"), "Maximum inference retries per segment (<= 10)")
	cmd.Flags().Bool("verbose", v.GetBool("log.verbose"), "Enable verbose logging")
	cmd.Flags().Bool("test-only", false, "Validate the configuration with a synthetic self-test and exit, without loading a model")
	cmd.Flags().String("metrics-addr", v.GetString("metrics.addr"), "Address to serve Prometheus metrics and /healthz on (empty disables)")

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, v *viper.Viper) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived signal %v, initiating graceful shutdown...\n", sig)
		cancel()
	}()

	logging.Init(logging.Options{
		LogDir:     v.GetString("log.dir"),
		Verbose:    v.GetBool("verbose"),
		MaxSizeMB:  v.GetInt("log.max_size_mb"),
		MaxBackups: v.GetInt("log.max_backups"),
		MaxAgeDays: v.GetInt("log.max_age_days"),
	})
	logger := logging.Structured()

	if dsn := v.GetString("telemetry.sentry_dsn"); dsn != "" {
		errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	}

	if v.GetBool("test-only") {
		cfg := pipelineConfigFromViper(v, "", "")
		if err := pipeline.SelfTest(cfg); err != nil {
			return fmt.Errorf("self-test failed: %w", err)
		}
		fmt.Println("self-test passed")
		return nil
	}

	inputPath := v.GetString("input")
	if inputPath == "" {
		return errors.ConfigurationError("--input is required")
	}
	modelPath := v.GetString("model")
	if modelPath == "" {
		return errors.ConfigurationError("--model is required")
	}
	outputPath := v.GetString("output")
	if outputPath == "" {
		outputPath = "output.wav"
	}

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if addr := v.GetString("metrics-addr"); addr != "" {
		metrics = observability.NewMetrics()
		obsServer = observability.NewServer(addr, metrics)
		errCh := make(chan error, 1)
		obsServer.Start(errCh)
		defer func() {
			_ = obsServer.Shutdown(5 * time.Second)
		}()
	}

	factory, err := inference.NewTFLiteFactory(modelPath)
	if err != nil {
		return err
	}

	cfg := pipelineConfigFromViper(v, inputPath, outputPath)

	driver, err := pipeline.New(cfg, factory, metrics, logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	done := make(chan struct{})
	var runErr error
	var runMetrics pipeline.Metrics
	go func() {
		defer close(done)
		runMetrics, runErr = driver.Run()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("done",
		slog.Int("segments", runMetrics.SegmentCount),
		slog.Float64("real_time_factor", runMetrics.RealTimeFactor),
		slog.Duration("wall_clock", runMetrics.WallClock),
	)
	fmt.Printf("wrote %s (%d segments, RTF %.3f, %s)\n", outputPath, runMetrics.SegmentCount, runMetrics.RealTimeFactor, runMetrics.WallClock)

	return nil
}

func pipelineConfigFromViper(v *viper.Viper, inputPath, outputPath string) pipeline.Config {
	numWorkers := v.GetInt("parallel-workers")
	if numWorkers < 1 {
		numWorkers = 1
	}

	threads := v.GetInt("inference-threads")
	if threads <= 0 {
		threads = cpuspec.GetCPUSpec().GetOptimalThreadCount()
	}

	return pipeline.Config{
		InputPath:             inputPath,
		OutputPath:            outputPath,
		TargetSampleRate:      v.GetInt("sample-rate"),
		SegmentSize:           v.GetInt("segment-size"),
		Overlap:               v.GetFloat64("overlap"),
		TotalInferenceThreads: threads,
		NumWorkers:            numWorkers,
		MaxRetries:            v.GetInt("max-retries"),
		RetryDelay:            50 * time.Millisecond,
		InferenceTimeout:      v.GetDuration("inference.timeout"),
		AGCEnabled:            v.GetBool("agc.enabled"),
		NormalizeEnabled:      v.GetBool("normalize.enabled"),
	}
}
