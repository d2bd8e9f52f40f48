// Package conf loads and validates pipeline configuration from flags,
// environment variables, and an optional TOML or YAML config file, layered through
// viper the same way a BirdNET-Go deployment is configured.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds the fully resolved configuration for one run of the
// enhancement pipeline.
type Settings struct {
	Debug bool

	Log LogConfig

	Audio struct {
		TargetSampleRate int `mapstructure:"target_sample_rate"` // Hz, resample target before segmentation
	}

	Segment struct {
		Size        int     // samples per segment fed to inference
		OverlapRatio float64 `mapstructure:"overlap_ratio"` // fraction of Size shared between consecutive segments, in [0, 1)
	}

	Inference struct {
		ModelPath string `mapstructure:"model_path"`
		Threads   int // 0 = auto-detect via cpuspec
		Timeout   string
	}

	Worker struct {
		Count      int // 0 = a single (serial) worker
		MaxRetries int    `mapstructure:"max_retries"`
		RetryDelay string `mapstructure:"retry_delay"`
	}

	AGC struct {
		Enabled bool
	}

	Normalize struct {
		Enabled bool
	}

	Output struct {
		Path      string
		Overwrite bool
	}

	Metrics struct {
		Addr string // empty disables the metrics/health HTTP server
	}

	Telemetry struct {
		SentryDSN string `mapstructure:"sentry_dsn"`
	}
}

// LogConfig controls the structured-logging file rotation policy.
type LogConfig struct {
	Dir        string
	Verbose    bool
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("audio.target_sample_rate", 16000)

	v.SetDefault("segment.size", 16000)
	v.SetDefault("segment.overlap_ratio", 0.1)

	v.SetDefault("inference.model_path", "")
	v.SetDefault("inference.threads", 4)
	v.SetDefault("inference.timeout", "30s")

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.retry_delay", "50ms")

	v.SetDefault("agc.enabled", true)
	v.SetDefault("normalize.enabled", true)

	v.SetDefault("output.path", "")
	v.SetDefault("output.overwrite", false)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("telemetry.sentry_dsn", "")
}

// Load builds a Viper instance with defaults applied, an optional config
// file merged in, and environment variable overrides enabled (prefix
// DENOISE_, nested keys joined with underscores). It does not read CLI
// flags; callers bind those separately with BindPFlags before calling
// Resolve.
func Load(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DENOISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

// MergeConfigFile reads configFile (TOML or YAML, detected by extension)
// into an already-constructed viper instance. It is used for the
// --config flag, whose value is only known once CLI flags have been
// parsed, after v's defaults and flag bindings already exist; viper
// keeps config-file values as a distinct layer below explicitly-set
// flags regardless of merge order, so CLI overrides still win.
func MergeConfigFile(v *viper.Viper, configFile string) error {
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	return nil
}

// Resolve unmarshals the layered viper state into a Settings value and
// validates it.
func Resolve(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks invariants that the pipeline depends on before it starts
// processing audio.
func (s *Settings) Validate() error {
	if s.Segment.Size <= 0 {
		return fmt.Errorf("segment.size must be positive, got %d", s.Segment.Size)
	}
	if s.Segment.Size%2 != 0 {
		return fmt.Errorf("segment.size must be even, got %d", s.Segment.Size)
	}
	if s.Segment.OverlapRatio < 0 || s.Segment.OverlapRatio >= 1 {
		return fmt.Errorf("segment.overlap_ratio must be in [0, 1), got %f", s.Segment.OverlapRatio)
	}
	if s.Audio.TargetSampleRate <= 0 {
		return fmt.Errorf("audio.target_sample_rate must be positive, got %d", s.Audio.TargetSampleRate)
	}
	if s.Worker.Count < 0 {
		return fmt.Errorf("worker.count must not be negative, got %d", s.Worker.Count)
	}
	if s.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must not be negative, got %d", s.Worker.MaxRetries)
	}
	return nil
}
