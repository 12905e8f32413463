package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// store is the associative backing of a MemoryCache. Methods that drop
// entries return them so the caller can run callbacks outside the lock.
type store[V any] interface {
	get(key string) (*box[V], bool)
	// put inserts or replaces key and returns entries evicted to respect
	// the count limit.
	put(key string, b *box[V]) (evicted []entry[V])
	remove(key string) (*box[V], bool)
	purge() []entry[V]
	len() int
	keys() []string
}

// mapStore is an unbounded store. Entries live until removed.
type mapStore[V any] struct {
	mu    sync.RWMutex
	items map[string]*box[V]
}

func newMapStore[V any]() *mapStore[V] {
	return &mapStore[V]{items: make(map[string]*box[V])}
}

func (s *mapStore[V]) get(key string) (*box[V], bool) {
	s.mu.RLock()
	b, ok := s.items[key]
	s.mu.RUnlock()
	return b, ok
}

func (s *mapStore[V]) put(key string, b *box[V]) []entry[V] {
	s.mu.Lock()
	s.items[key] = b
	s.mu.Unlock()
	return nil
}

func (s *mapStore[V]) remove(key string) (*box[V], bool) {
	s.mu.Lock()
	b, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return b, ok
}

func (s *mapStore[V]) purge() []entry[V] {
	s.mu.Lock()
	old := s.items
	s.items = make(map[string]*box[V])
	s.mu.Unlock()

	dropped := make([]entry[V], 0, len(old))
	for k, b := range old {
		dropped = append(dropped, entry[V]{key: k, box: b})
	}
	return dropped
}

func (s *mapStore[V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *mapStore[V]) keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	return keys
}

// lruStore holds at most limit entries. Inserting past the limit evicts
// the least recently used entry within the same call.
type lruStore[V any] struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, *box[V]]
	dropped []entry[V] // filled by the eviction hook, drained under mu
}

func newLRUStore[V any](limit int) (*lruStore[V], error) {
	s := &lruStore[V]{}
	l, err := simplelru.NewLRU[string, *box[V]](limit, func(key string, b *box[V]) {
		s.dropped = append(s.dropped, entry[V]{key: key, box: b})
	})
	if err != nil {
		return nil, err
	}
	s.lru = l
	return s, nil
}

func (s *lruStore[V]) drain() []entry[V] {
	dropped := s.dropped
	s.dropped = nil
	return dropped
}

func (s *lruStore[V]) get(key string) (*box[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Get(key)
}

func (s *lruStore[V]) put(key string, b *box[V]) []entry[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(key, b)
	return s.drain()
}

func (s *lruStore[V]) remove(key string) (*box[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lru.Peek(key)
	if ok {
		s.lru.Remove(key)
		s.drain()
	}
	return b, ok
}

func (s *lruStore[V]) purge() []entry[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
	return s.drain()
}

func (s *lruStore[V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *lruStore[V]) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Keys()
}
