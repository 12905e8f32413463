package cache

import (
	"log/slog"

	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/pkg/lifecycle"
)

// Option configures cache behavior using the functional options pattern.
type Option[V any] func(*cacheOptions[V])

// cacheOptions holds internal configuration for cache instances.
// Stats are always collected. Metrics are optional and exposed via WithMetrics().
type cacheOptions[V any] struct {
	// metricsReg is optional; if provided, cache stats are also exposed as Prometheus metrics
	metricsReg *metric.MetricsRegistry

	// metricsPrefix is used as the component label for Prometheus metrics
	metricsPrefix string

	evictCallback EvictCallback[V]

	// source is non-nil when the cache purges itself on lifecycle signals
	source lifecycle.Source

	logger *slog.Logger
}

// WithMetrics enables Prometheus metrics export for cache statistics.
// If registry is nil or prefix is empty, this option is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, prefix string) Option[V] {
	return func(opts *cacheOptions[V]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithEvictionCallback sets a callback invoked for every entry that leaves
// the cache: count-limit evictions, removals and purges. During a lifecycle
// purge the callback runs inside the signal handler, so it must not call
// Close on the cache or post to the source the cache subscribed to; either
// deadlocks.
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(opts *cacheOptions[V]) {
		opts.evictCallback = callback
	}
}

// WithAutomaticRemoveAll purges the cache whenever source reports that the
// process entered the background or received a memory warning. A nil
// source never fires.
func WithAutomaticRemoveAll[V any](source lifecycle.Source) Option[V] {
	return func(opts *cacheOptions[V]) {
		if source == nil {
			source = lifecycle.NopSource{}
		}
		opts.source = source
	}
}

// WithLogger sets the logger used to report purges.
func WithLogger[V any](logger *slog.Logger) Option[V] {
	return func(opts *cacheOptions[V]) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

func applyOptions[V any](options ...Option[V]) *cacheOptions[V] {
	opts := &cacheOptions[V]{
		logger: slog.Default(),
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
