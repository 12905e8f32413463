package cache

// Cache is the completion-style contract shared by every cache
// implementation. Each non-nil completion fires exactly once, after the
// effect is visible to other callers. Callers must not assume which
// goroutine runs a completion.
type Cache[V any] interface {
	// Set stores value under key, replacing any previous value.
	Set(key string, value V, onComplete func())

	// Get yields the stored value and true, or the zero value and false.
	// A nil onComplete makes Get a no-op.
	Get(key string, onComplete func(value V, ok bool))

	// Remove deletes the entry for key if present.
	Remove(key string, onComplete func())

	// RemoveAll deletes every entry.
	RemoveAll(onComplete func())

	// Close releases resources held by the cache, such as its lifecycle
	// subscription. It is safe to call more than once.
	Close() error
}

// EvictCallback is called when an entry leaves the cache.
// It receives the key and value of the dropped entry.
type EvictCallback[V any] func(key string, value V)

// box wraps a stored value. A fresh box is allocated on every write so a
// reader never observes a partially replaced value.
type box[V any] struct {
	value V
}

func newBox[V any](value V) *box[V] {
	return &box[V]{value: value}
}

// entry is a key and box pair handed back by a store when it drops entries.
type entry[V any] struct {
	key string
	box *box[V]
}

func complete(fn func()) {
	if fn != nil {
		fn()
	}
}
