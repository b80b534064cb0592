package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pushNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "partnerbot_test_total", Help: "t"}, []string{"kind"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "partnerbot_test_gauge", Help: "t"})
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "partnerbot_test_seconds", Help: "t"})
	reg.MustRegister(counter, gauge, hist)
	counter.WithLabelValues("dm").Add(3)
	gauge.Set(7)
	hist.Observe(1)
	return reg
}

func TestRemoteWritePush(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "tok", clock.NewFakeClock(pushNow))
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer tok", headers.Get("Authorization"))

	// Histograms are skipped.
	require.Len(t, got.Timeseries, 2)
	values := map[string]float64{}
	for _, ts := range got.Timeseries {
		require.Len(t, ts.Samples, 1)
		assert.Equal(t, pushNow.UnixMilli(), ts.Samples[0].Timestamp)
		for _, l := range ts.Labels {
			if l.Name == "__name__" {
				values[l.Value] = ts.Samples[0].Value
			}
		}
	}
	assert.Equal(t, 3.0, values["partnerbot_test_total"])
	assert.Equal(t, 7.0, values["partnerbot_test_gauge"])
}

func TestRemoteWriteRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "", clock.NewFakeClock(pushNow))
	err := pusher.Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPushgatewayPush(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "partnerbot", map[string]string{"environment": "test", "": "skip"})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/partnerbot/environment/test", path)
}

func TestNewPusherFromConfig(t *testing.T) {
	clk := clock.NewFakeClock(pushNow)

	cfg := config.Config{}
	assert.Nil(t, NewPusher(cfg, clk, zap.NewNop()))

	cfg.MetricsPush = config.MetricsPushConfig{Exporter: ExporterRemoteWrite}
	assert.Nil(t, NewPusher(cfg, clk, zap.NewNop()))

	cfg.MetricsPush.Endpoint = "not a url"
	assert.Nil(t, NewPusher(cfg, clk, zap.NewNop()))

	cfg.MetricsPush.Endpoint = "http://prom.local/api/v1/write"
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, clk, zap.NewNop()))

	cfg.MetricsPush.Exporter = ExporterPushgateway
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, clk, zap.NewNop()))

	cfg.MetricsPush.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, clk, zap.NewNop()))
}
