// Package cache provides a generic, thread-safe in-process cache with an
// optional entry-count bound, always-on statistics, optional Prometheus
// metrics and automatic purging driven by lifecycle signals.
//
// # Overview
//
// Callers program against the completion-style Cache contract:
//
//	type Cache[V any] interface {
//		Set(key string, value V, onComplete func())
//		Get(key string, onComplete func(value V, ok bool))
//		Remove(key string, onComplete func())
//		RemoveAll(onComplete func())
//	}
//
// MemoryCache is the in-process implementation. Its completions run on the
// calling goroutine before the method returns, but code written against
// Cache should not rely on that: other implementations may complete later
// and elsewhere.
//
// # Quick Start
//
// Unbounded cache:
//
//	c, err := cache.NewMemory[string](0)
//	if err != nil {
//		return err
//	}
//	c.Set("greeting", "hello", nil)
//	c.Get("greeting", func(v string, ok bool) {
//		fmt.Println(v, ok) // hello true
//	})
//
// Bounded cache that drops everything under memory pressure:
//
//	c, err := cache.NewMemory[*Thumbnail](500,
//		cache.WithAutomaticRemoveAll[*Thumbnail](lifecycle.Default()),
//		cache.WithMetrics[*Thumbnail](registry, "thumbnails"),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
// # Count Limit
//
// A positive count limit bounds the number of entries. Inserting a new key
// into a full cache evicts the least recently used entry in the same call;
// reads and writes both count as use. Zero or a negative limit means
// unbounded. Callers should treat the bound as a soft cap and not depend on
// which entry is chosen.
//
// # Synchronous Access
//
// Item and SetItem are blocking shorthands over the same store operations:
//
//	c.SetItem("k", v, true)  // same as Set
//	v, ok := c.Item("k")     // same as Get
//	c.SetItem("k", v, false) // same as Remove
//
// # Lifecycle Purging
//
// WithAutomaticRemoveAll subscribes the cache to a lifecycle.Source. When
// the source reports SignalDidEnterBackground or SignalMemoryWarning every
// entry is dropped. A purge is not a RemoveAll call: no completion fires,
// but eviction callbacks do run for each dropped entry and the purge is
// counted in Statistics.Purges.
//
// Close releases the subscription. After Close returns no purge will run,
// and the cache keeps working as a plain cache. Close is idempotent.
//
// # Statistics and Metrics
//
// Statistics are always collected:
//
//	s := c.Stats().Summary()
//	fmt.Printf("hit ratio %.2f, evictions %d\n", s.HitRatio, s.Evictions)
//
// WithMetrics additionally exports them through a metric.MetricsRegistry:
//
//	semcache_cache_hits_total{component="thumbnails"}
//	semcache_cache_misses_total{component="thumbnails"}
//	semcache_cache_sets_total{component="thumbnails"}
//	semcache_cache_deletes_total{component="thumbnails"}
//	semcache_cache_evictions_total{component="thumbnails"}
//	semcache_cache_purges_total{component="thumbnails"}
//	semcache_cache_size{component="thumbnails"}
//
// Registering two caches under the same name fails.
//
// # Configuration
//
// NewFromConfig builds a cache from a Config, returning a Noop cache when
// caching is disabled:
//
//	c, err := cache.NewFromConfig[[]byte](cfg.Cache, nil, registry)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
// With auto_remove_all set and a nil source the cache subscribes to
// lifecycle.Default(); Close releases that subscription.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Concurrent writes to one key
// are last-writer-wins. A read racing a write sees either the old or the
// new value, never a mix. Eviction callbacks run outside the store lock and
// may call back into the cache.
package cache
