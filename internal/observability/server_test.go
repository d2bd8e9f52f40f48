package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzReturnsOK(t *testing.T) {
	metrics := NewMetrics()
	srv := NewServer("127.0.0.1:0", metrics)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpointExposesRegisteredCollectors(t *testing.T) {
	metrics := NewMetrics()
	metrics.SegmentsProcessed.Add(3)
	srv := NewServer("127.0.0.1:0", metrics)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "denoise_segments_processed_total")
}

func TestShutdownWithoutStartSucceeds(t *testing.T) {
	metrics := NewMetrics()
	srv := NewServer("127.0.0.1:0", metrics)
	require.NoError(t, srv.Shutdown(0))
}
