// Package observability exposes the pipeline's Prometheus metrics and a
// liveness endpoint over an optional HTTP server, enabled only when
// --metrics-addr is set. It is an ambient side-channel, not a service
// mode: the pipeline still runs and exits as a one-shot batch job.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the collectors the pipeline driver updates as it works
// through a file.
type Metrics struct {
	SegmentsProcessed prometheus.Counter
	InferenceErrors   prometheus.Counter
	InferenceDuration prometheus.Histogram
	FileDuration      prometheus.Histogram
	RealTimeFactor    prometheus.Gauge
	registry          *prometheus.Registry
}

// NewMetrics registers a fresh collector set on its own registry so
// multiple pipeline instances in a test process never collide on the
// default global registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SegmentsProcessed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "denoise",
			Name:      "segments_processed_total",
			Help:      "Total number of segments successfully processed by the worker pool.",
		}),
		InferenceErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "denoise",
			Name:      "inference_errors_total",
			Help:      "Total number of files whose inference failed because at least one segment exhausted its retries.",
		}),
		InferenceDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "denoise",
			Name:      "inference_duration_seconds",
			Help:      "Per-segment inference call latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		FileDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "denoise",
			Name:      "file_duration_seconds",
			Help:      "Total wall-clock time to process one input file end to end.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RealTimeFactor: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "denoise",
			Name:      "real_time_factor",
			Help:      "Wall-clock processing time divided by input audio duration for the most recent file.",
		}),
		registry: reg,
	}

	return m
}

// Server serves /metrics (Prometheus exposition) and /healthz (liveness)
// on addr.
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer builds a Server bound to addr, wired to metrics' registry.
func NewServer(addr string, metrics *Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})))

	return &Server{echo: e, addr: addr}
}

// Start begins serving in a background goroutine and returns
// immediately. Bind failures are reported asynchronously through
// errCh rather than blocking the caller.
func (s *Server) Start(errCh chan<- error) {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
}

// Shutdown gracefully stops the server within the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
