// Package metric wraps a private Prometheus registry for semcache.
//
// MetricsRegistry keeps track of which component registered which collector,
// so duplicate registrations surface as invalid classified errors instead of
// panics. Caches register their per-instance counters through it when created
// with cache.WithMetrics, and the lifecycle machinery records received,
// published and purge-triggering signals in the shared core Metrics.
//
//	registry := metric.NewMetricsRegistry()
//	c, err := cache.NewMemory[[]byte](1000, cache.WithMetrics[[]byte](registry, "thumbnails"))
//
//	srv := metric.NewServer(9090, "/metrics", registry)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop(context.Background())
//
// The server also answers /health with a JSON health.Status. It reports
// healthy until SetHealthCheck installs a real check; an unhealthy result
// is served with 503.
package metric
