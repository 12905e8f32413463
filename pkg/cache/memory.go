package cache

import (
	"log/slog"
	"sync"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
	"github.com/c360/semcache/pkg/lifecycle"
)

// MemoryCache is an in-process Cache. A positive count limit bounds the
// number of entries; anything else leaves it unbounded. Completions run on
// the calling goroutine before the method returns.
type MemoryCache[V any] struct {
	store      store[V]
	countLimit int

	stats   *Statistics
	metrics *cacheMetrics
	core    *metric.Metrics
	evictFn EvictCallback[V]
	logger  *slog.Logger

	sub       lifecycle.Subscription
	closeOnce sync.Once
	closeErr  error
}

var _ Cache[string] = (*MemoryCache[string])(nil)

// NewMemory creates a memory cache holding at most countLimit entries.
// A countLimit of zero or less means unbounded.
func NewMemory[V any](countLimit int, options ...Option[V]) (*MemoryCache[V], error) {
	opts := applyOptions(options...)

	if countLimit < 0 {
		countLimit = 0
	}

	c := &MemoryCache[V]{
		countLimit: countLimit,
		stats:      NewStatistics(),
		evictFn:    opts.evictCallback,
		logger:     opts.logger,
	}

	if countLimit > 0 {
		s, err := newLRUStore[V](countLimit)
		if err != nil {
			return nil, errors.WrapInvalid(err, "cache", "NewMemory", "create bounded store")
		}
		c.store = s
	} else {
		c.store = newMapStore[V]()
	}

	if opts.metricsReg != nil {
		m, err := newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "cache", "NewMemory", "metrics registration")
		}
		c.metrics = m
		c.core = opts.metricsReg.CoreMetrics()
		c.logger = c.logger.With("cache", opts.metricsPrefix)
	}

	if opts.source != nil {
		sub, err := opts.source.Subscribe(c.handleSignal)
		if err != nil {
			if c.metrics != nil {
				unregister(opts.metricsReg, opts.metricsPrefix, c.metrics.registered)
			}
			return nil, errors.WrapTransient(err, "cache", "NewMemory", "subscribe to lifecycle signals")
		}
		c.sub = sub
	}

	return c, nil
}

// Set stores value under key. Storing past the count limit evicts the
// least recently used entry.
func (c *MemoryCache[V]) Set(key string, value V, onComplete func()) {
	c.set(key, value)
	complete(onComplete)
}

// Get yields the value for key to onComplete.
func (c *MemoryCache[V]) Get(key string, onComplete func(value V, ok bool)) {
	if onComplete == nil {
		return
	}
	value, ok := c.get(key)
	onComplete(value, ok)
}

// Remove deletes key if present.
func (c *MemoryCache[V]) Remove(key string, onComplete func()) {
	c.remove(key)
	complete(onComplete)
}

// RemoveAll deletes every entry.
func (c *MemoryCache[V]) RemoveAll(onComplete func()) {
	c.dropAll()
	complete(onComplete)
}

// Item reads key synchronously.
func (c *MemoryCache[V]) Item(key string) (V, bool) {
	return c.get(key)
}

// SetItem stores value under key when ok is true and removes key otherwise.
func (c *MemoryCache[V]) SetItem(key string, value V, ok bool) {
	if ok {
		c.set(key, value)
		return
	}
	c.remove(key)
}

// Size returns the current number of entries in the cache.
func (c *MemoryCache[V]) Size() int {
	return c.store.len()
}

// Keys returns the keys currently in the cache in no particular order.
func (c *MemoryCache[V]) Keys() []string {
	return c.store.keys()
}

// CountLimit returns the normalized count limit. Zero means unbounded.
func (c *MemoryCache[V]) CountLimit() int {
	return c.countLimit
}

// Stats returns the cache's statistics.
func (c *MemoryCache[V]) Stats() *Statistics {
	return c.stats
}

// Close releases the lifecycle subscription. No purge runs once Close has
// returned. The cache remains usable without automatic purging.
// Close waits for an in-flight purge, so it must not be called from an
// eviction callback.
func (c *MemoryCache[V]) Close() error {
	c.closeOnce.Do(func() {
		if c.sub == nil {
			return
		}
		if err := c.sub.Unsubscribe(); err != nil {
			c.closeErr = errors.WrapTransient(err, "cache", "Close", "unsubscribe from lifecycle signals")
		}
	})
	return c.closeErr
}

func (c *MemoryCache[V]) get(key string) (V, bool) {
	b, ok := c.store.get(key)
	if !ok {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		var zero V
		return zero, false
	}

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}
	return b.value, true
}

func (c *MemoryCache[V]) set(key string, value V) {
	evicted := c.store.put(key, newBox(value))

	c.stats.Set()
	if c.metrics != nil {
		c.metrics.recordSet()
	}
	for _, e := range evicted {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		c.notifyEvicted(e)
	}
	c.updateSize()
}

func (c *MemoryCache[V]) remove(key string) {
	b, ok := c.store.remove(key)
	if !ok {
		return
	}

	c.stats.Delete()
	if c.metrics != nil {
		c.metrics.recordDelete()
	}
	c.updateSize()
	c.notifyEvicted(entry[V]{key: key, box: b})
}

func (c *MemoryCache[V]) dropAll() int {
	dropped := c.store.purge()
	c.updateSize()
	for _, e := range dropped {
		c.notifyEvicted(e)
	}
	return len(dropped)
}

// handleSignal purges the store directly. No completion is involved.
func (c *MemoryCache[V]) handleSignal(s lifecycle.Signal) {
	switch s {
	case lifecycle.SignalDidEnterBackground, lifecycle.SignalMemoryWarning:
	default:
		return
	}

	n := c.dropAll()

	c.stats.Purge()
	if c.metrics != nil {
		c.metrics.recordPurge()
	}
	if c.core != nil {
		c.core.RecordPurge(s.String())
	}
	c.logger.Info("Cache purged on lifecycle signal", "signal", s.String(), "entries", n)
}

func (c *MemoryCache[V]) notifyEvicted(e entry[V]) {
	if c.evictFn != nil {
		c.evictFn(e.key, e.box.value)
	}
}

func (c *MemoryCache[V]) updateSize() {
	size := c.store.len()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.updateSize(size)
	}
}
