package metric

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/health"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})
	require.NoError(t, registry.RegisterCounter("sessions", "test_counter", counter))
	counter.Inc()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "test_counter" {
			found = true
			assert.Equal(t, float64(1), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "counter should be registered in the Prometheus registry")
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})
	require.NoError(t, registry.RegisterGauge("sessions", "size", gauge))

	err := registry.RegisterGauge("sessions", "size", gauge)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	other := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})
	err = registry.RegisterGauge("other", "size", other)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err), "prometheus name conflict should be invalid")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vec_total", Help: "vec"}, []string{"k"})
	require.NoError(t, registry.RegisterCounterVec("sessions", "vec", vec))

	assert.True(t, registry.Unregister("sessions", "vec"))
	assert.False(t, registry.Unregister("sessions", "vec"))

	// Re-registering after unregister is allowed.
	require.NoError(t, registry.RegisterCounterVec("sessions", "vec", vec))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name:        "concurrent_gauge",
				Help:        "concurrent",
				ConstLabels: prometheus.Labels{"idx": string(rune('a' + i))},
			}, []string{"k"})
			assert.NoError(t, registry.RegisterGaugeVec(string(rune('a'+i)), "g", g))
		}(i)
	}
	wg.Wait()
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordSignal("nats", "memory_warning")
	core.RecordSignal("nats", "memory_warning")
	core.RecordPublish("background")
	core.RecordPurge("memory_warning")
	core.SetNATSConnected(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(core.SignalsReceived.WithLabelValues("nats", "memory_warning")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.SignalsPublished.WithLabelValues("background")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.CachePurges.WithLabelValues("memory_warning")))
	assert.Equal(t, float64(1), testutil.ToFloat64(core.NATSConnected))

	core.SetNATSConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(core.NATSConnected))
}

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordPublish("memory_warning")

	srv := httptest.NewServer(NewServer(0, "", registry).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "semcache_lifecycle_signals_published_total")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(0, "", nil)
	err := srv.Start()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	assert.NoError(t, srv.Stop(context.Background()), "stopping a server that never started is a no-op")
	assert.Equal(t, "http://localhost:9090/metrics", srv.Address())
}

func TestServer_HealthCheck(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	server.SetHealthCheck(func() health.Status {
		return health.Aggregate("relay", []health.Status{
			health.NewHealthy("nats", "connected"),
			health.NewUnhealthy("pressure", "read /proc/pressure/memory failed"),
		})
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var status health.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, health.StateUnhealthy, status.State)
	assert.Len(t, status.SubStatuses, 2)
}
