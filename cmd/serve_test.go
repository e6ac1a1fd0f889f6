package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/server"
	"github.com/teemow/sheetmailer/internal/tools/registry"
)

func TestNewHTTPHandlerHealthEndpoints(t *testing.T) {
	sc := server.NewServerContext(context.Background(), server.Config{})
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv, err := registry.NewServer(sc, "test", true)
	require.NoError(t, err)

	health := server.NewHealthChecker(sc)
	srv := httptest.NewServer(newHTTPHandler(mcpSrv, health, nil, false))
	t.Cleanup(srv.Close)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/healthz", wantStatus: http.StatusOK},
		// No token provider is configured
		{path: "/readyz", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body server.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Status)
		})
	}
}

func TestRunServeRejectsUnknownTransport(t *testing.T) {
	err := runServe(context.Background(), serveOptions{transport: "sse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type: sse")
}

func newRecordingMetrics(t *testing.T) (*instrumentation.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)
	return metrics, reader
}

// httpRequestCounts returns http_requests_total grouped by path and status.
func httpRequestCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				method, _ := dp.Attributes.Value(attribute.Key("method"))
				path, _ := dp.Attributes.Value(attribute.Key("path"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				counts[method.AsString()+" "+path.AsString()+" "+status.AsString()] += dp.Value
			}
		}
	}
	return counts
}

func TestRecordRequestsCapturesStatus(t *testing.T) {
	metrics, reader := newRecordingMetrics(t)

	handler := recordRequests(metrics, "/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/mcp?session=abc", nil))
	}

	assert.Equal(t, map[string]int64{
		"POST /mcp 200":   2,
		"DELETE /mcp 405": 1,
	}, httpRequestCounts(t, reader))
}

func TestNewHTTPHandlerRecordsOnlyMCPRequests(t *testing.T) {
	sc := server.NewServerContext(context.Background(), server.Config{})
	t.Cleanup(func() { _ = sc.Shutdown() })

	mcpSrv, err := registry.NewServer(sc, "test", true)
	require.NoError(t, err)

	metrics, reader := newRecordingMetrics(t)
	srv := httptest.NewServer(newHTTPHandler(mcpSrv, server.NewHealthChecker(sc), metrics, true))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Post(srv.URL+"/mcp", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	counts := httpRequestCounts(t, reader)
	require.Len(t, counts, 1)
	for key, n := range counts {
		assert.True(t, strings.HasPrefix(key, "POST /mcp "), key)
		assert.Equal(t, int64(1), n)
	}
}
