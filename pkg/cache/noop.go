package cache

// Noop is a Cache that stores nothing. Every Get misses.
type Noop[V any] struct{}

// NewNoop creates a cache that does nothing (always returns cache misses).
// This is useful when caching is disabled via configuration.
func NewNoop[V any]() *Noop[V] {
	return &Noop[V]{}
}

func (Noop[V]) Set(_ string, _ V, onComplete func()) {
	complete(onComplete)
}

func (Noop[V]) Get(_ string, onComplete func(V, bool)) {
	if onComplete != nil {
		var zero V
		onComplete(zero, false)
	}
}

func (Noop[V]) Remove(_ string, onComplete func()) {
	complete(onComplete)
}

func (Noop[V]) RemoveAll(onComplete func()) {
	complete(onComplete)
}

func (Noop[V]) Close() error {
	return nil
}
