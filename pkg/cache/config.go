package cache

import (
	"fmt"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/pkg/lifecycle"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled"`

	// CountLimit bounds the number of entries. Zero or less means unbounded.
	CountLimit int `json:"count_limit"`

	// AutoRemoveAll purges the cache on background and memory-warning signals.
	AutoRemoveAll bool `json:"auto_remove_all"`

	// MetricsName labels the cache's Prometheus metrics. Empty disables them.
	MetricsName string `json:"metrics_name,omitempty"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		CountLimit:    0,
		AutoRemoveAll: true,
	}
}

// Validate checks if the configuration is valid. Negative limits are
// accepted and treated as unbounded.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MetricsName != "" && !validMetricsName(c.MetricsName) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("metrics_name %q must contain only letters, digits, '_', '-' or '.'", c.MetricsName))
	}
	return nil
}

func validMetricsName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// NewFromConfig creates a cache based on the provided configuration.
// It returns a Noop cache when caching is disabled. source feeds the
// automatic purge when AutoRemoveAll is set; nil falls back to the
// process-wide notifier. registry may be nil. Callers must Close the
// returned cache to release its lifecycle subscription.
func NewFromConfig[V any](
	config Config, source lifecycle.Source, registry *metric.MetricsRegistry, options ...Option[V],
) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "NewFromConfig", "config validation")
	}

	if !config.Enabled {
		return NewNoop[V](), nil
	}

	opts := make([]Option[V], 0, len(options)+2)
	if config.AutoRemoveAll {
		if source == nil {
			source = lifecycle.Default()
		}
		opts = append(opts, WithAutomaticRemoveAll[V](source))
	}
	if config.MetricsName != "" {
		opts = append(opts, WithMetrics[V](registry, config.MetricsName))
	}
	opts = append(opts, options...)

	return NewMemory[V](config.CountLimit, opts...)
}
