package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache bounds entries by count and by idle time. Reads extend an entry's
// lifetime. OnEvict, when set, runs outside the cache lock for entries dropped
// by expiry, capacity, Delete or Purge. Overwriting a key with Set does not
// release the old value.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string, data T)
	now     func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type evicted[T any] struct {
	key  string
	data T
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// OnEvict registers fn to release evicted values.
func (c *LRUCache[T]) OnEvict(fn func(key string, data T)) *LRUCache[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	var (
		zero T
		out  []evicted[T]
	)
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	now := c.now()
	if now.After(item.expiresAt) {
		out = append(out, c.removeElement(elem))
		c.mu.Unlock()
		c.release(out)
		return zero, false
	}
	item.expiresAt = now.Add(c.ttl)
	c.lru.MoveToFront(elem)
	c.mu.Unlock()
	return item.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	var out []evicted[T]

	c.mu.Lock()
	item := &cacheItem[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
	} else {
		c.items[key] = c.lru.PushFront(item)
		for c.maxSize > 0 && c.lru.Len() > c.maxSize {
			out = append(out, c.removeElement(c.lru.Back()))
		}
	}
	c.mu.Unlock()

	c.release(out)
}

// Delete removes key and releases its value.
func (c *LRUCache[T]) Delete(key string) {
	var out []evicted[T]
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		out = append(out, c.removeElement(elem))
	}
	c.mu.Unlock()
	c.release(out)
}

// CleanExpired removes all expired entries and returns how many it removed.
func (c *LRUCache[T]) CleanExpired() int {
	var out []evicted[T]

	c.mu.Lock()
	now := c.now()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			out = append(out, c.removeElement(elem))
		}
		elem = prev
	}
	c.mu.Unlock()

	c.release(out)
	return len(out)
}

// Purge removes and releases every entry.
func (c *LRUCache[T]) Purge() {
	var out []evicted[T]
	c.mu.Lock()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		out = append(out, c.removeElement(elem))
		elem = prev
	}
	c.mu.Unlock()
	c.release(out)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) removeElement(elem *list.Element) evicted[T] {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
	return evicted[T]{key: item.key, data: item.data}
}

func (c *LRUCache[T]) release(out []evicted[T]) {
	c.mu.Lock()
	fn := c.onEvict
	c.mu.Unlock()
	if fn == nil {
		return
	}
	for _, e := range out {
		fn(e.key, e.data)
	}
}

var _ Cache[int] = (*LRUCache[int])(nil)
