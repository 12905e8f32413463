package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
)

// cacheMetrics mirrors Statistics as Prometheus collectors labelled with
// the cache's component name.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter
	purges    prometheus.Counter
	size      prometheus.Gauge

	registered []string
}

func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "semcache",
			Subsystem:   "cache",
			Name:        name,
			ConstLabels: labels,
			Help:        help,
		})
	}

	m := &cacheMetrics{
		hits:      counter("hits_total", "Total number of cache hits"),
		misses:    counter("misses_total", "Total number of cache misses"),
		sets:      counter("sets_total", "Total number of cache set operations"),
		deletes:   counter("deletes_total", "Total number of cache delete operations"),
		evictions: counter("evictions_total", "Total number of count-limit evictions"),
		purges:    counter("purges_total", "Total number of purges triggered by lifecycle signals"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "semcache",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of entries in cache",
		}),
	}

	collectors := []struct {
		name string
		c    prometheus.Collector
	}{
		{"cache_hits", m.hits},
		{"cache_misses", m.misses},
		{"cache_sets", m.sets},
		{"cache_deletes", m.deletes},
		{"cache_evictions", m.evictions},
		{"cache_purges", m.purges},
		{"cache_size", m.size},
	}
	for _, c := range collectors {
		var err error
		switch col := c.c.(type) {
		case prometheus.Gauge:
			err = registry.RegisterGauge(prefix, c.name, col)
		case prometheus.Counter:
			err = registry.RegisterCounter(prefix, c.name, col)
		}
		if err != nil {
			unregister(registry, prefix, m.registered)
			return nil, errors.Wrap(err, "cache", "newCacheMetrics", "register "+c.name)
		}
		m.registered = append(m.registered, c.name)
	}

	return m, nil
}

// unregister drops the named metrics so a failed construction can be retried.
func unregister(registry *metric.MetricsRegistry, prefix string, names []string) {
	for _, name := range names {
		registry.Unregister(prefix, name)
	}
}

func (m *cacheMetrics) recordHit()          { m.hits.Inc() }
func (m *cacheMetrics) recordMiss()         { m.misses.Inc() }
func (m *cacheMetrics) recordSet()          { m.sets.Inc() }
func (m *cacheMetrics) recordDelete()       { m.deletes.Inc() }
func (m *cacheMetrics) recordEviction()     { m.evictions.Inc() }
func (m *cacheMetrics) recordPurge()        { m.purges.Inc() }
func (m *cacheMetrics) updateSize(size int) { m.size.Set(float64(size)) }
