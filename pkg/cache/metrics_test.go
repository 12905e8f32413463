package cache

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/pkg/lifecycle"
)

func gatherByName(t *testing.T, registry *metric.MetricsRegistry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestCacheMetricsIntegration(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	n := lifecycle.NewNotifier()

	c, err := NewMemory[string](2,
		WithMetrics[string](registry, "test_cache"),
		WithAutomaticRemoveAll[string](n),
	)
	require.NoError(t, err)
	defer c.Close()

	c.Set("key1", "value1", nil)
	c.Set("key2", "value2", nil)
	c.Set("key3", "value3", nil) // evicts key1

	_, found := c.Item("key2")
	assert.True(t, found)
	_, found = c.Item("key1")
	assert.False(t, found)

	c.Remove("key2", nil)

	byName := gatherByName(t, registry)

	counters := map[string]float64{
		"semcache_cache_hits_total":      1,
		"semcache_cache_misses_total":    1,
		"semcache_cache_sets_total":      3,
		"semcache_cache_deletes_total":   1,
		"semcache_cache_evictions_total": 1,
		"semcache_cache_purges_total":    0,
	}
	for name, want := range counters {
		mf := byName[name]
		require.NotNil(t, mf, "%s should exist", name)
		assert.Equal(t, want, mf.Metric[0].GetCounter().GetValue(), name)
	}

	size := byName["semcache_cache_size"]
	require.NotNil(t, size)
	assert.Equal(t, float64(1), size.Metric[0].GetGauge().GetValue())
	assert.Equal(t, "component", size.Metric[0].Label[0].GetName())
	assert.Equal(t, "test_cache", size.Metric[0].Label[0].GetValue())

	n.Post(lifecycle.SignalMemoryWarning)

	byName = gatherByName(t, registry)
	assert.Equal(t, float64(1), byName["semcache_cache_purges_total"].Metric[0].GetCounter().GetValue())
	assert.Equal(t, float64(0), byName["semcache_cache_size"].Metric[0].GetGauge().GetValue())

	lifecyclePurges := byName["semcache_lifecycle_cache_purges_total"]
	require.NotNil(t, lifecyclePurges)
	assert.Equal(t, "memory_warning", lifecyclePurges.Metric[0].Label[0].GetValue())
	assert.Equal(t, float64(1), lifecyclePurges.Metric[0].GetCounter().GetValue())
}

func TestCacheWithoutMetrics(t *testing.T) {
	c, err := NewMemory[string](10)
	require.NoError(t, err)

	c.Set("key1", "value1", nil)
	_, _ = c.Item("key1")

	stats := c.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.Hits())
	assert.Equal(t, int64(1), stats.Sets())
}

func TestCacheMetrics_DuplicateName(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	_, err := NewMemory[string](0, WithMetrics[string](registry, "dup"))
	require.NoError(t, err)

	_, err = NewMemory[string](0, WithMetrics[string](registry, "dup"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestCacheMetrics_ReleasedOnSubscribeFailure(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	_, err := NewMemory[string](0,
		WithMetrics[string](registry, "retry_me"),
		WithAutomaticRemoveAll[string](failingSource{}),
	)
	require.Error(t, err)

	_, err = NewMemory[string](0, WithMetrics[string](registry, "retry_me"))
	assert.NoError(t, err)
}
