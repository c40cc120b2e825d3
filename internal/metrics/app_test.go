package metrics_test

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklens/asklens/internal/metrics"
	"github.com/asklens/asklens/internal/observability"
)

// initTelemetryOrSkip starts the exporter on a random port; sandboxes that
// forbid loopback binds skip instead of failing the suite.
func initTelemetryOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("metricstest", 0, "metricstest"); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted") {
			t.Skipf("skipping telemetry tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

func scrapeExporter(t *testing.T) string {
	t.Helper()

	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", observability.GetMetricsPort())
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	return string(body)
}

func TestRecordStreamChunks(t *testing.T) {
	initTelemetryOrSkip(t)

	metrics.RecordStreamChunks(42, 1500*time.Millisecond)

	content := scrapeExporter(t)
	assert.Contains(t, content, metrics.StreamChunksTotal)
	assert.Contains(t, content, metrics.StreamDuration)
}

func TestRecordPipelineStageMetrics(t *testing.T) {
	initTelemetryOrSkip(t)

	metrics.RecordOperation("query_extract", true)
	metrics.RecordOperation("search", false)
	metrics.RecordOperationError("search", "AILINK_PROVIDER_TIMEOUT")
	metrics.RecordSearchResults(3)

	content := scrapeExporter(t)
	assert.Contains(t, content, metrics.OperationsTotal)
	assert.Contains(t, content, metrics.OperationsErrorsTotal)
	assert.Contains(t, content, metrics.SearchResultsCount)
}

func TestRecordWithoutTelemetryIsNoOp(t *testing.T) {
	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	metrics.RecordStreamChunks(7, time.Second)
	metrics.RecordOperation("completion", true)
	metrics.RecordOperationError("completion", "AILINK_PROVIDER_AUTH")
	metrics.RecordSearchResults(0)
}
