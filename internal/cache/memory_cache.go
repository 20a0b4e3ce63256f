package cache

import "sync"

var _ Cache = (*MemoryCache)(nil)

// MemoryCache is an unbounded map cache without expiry, used in tests.
type MemoryCache struct {
	cache map[string][]byte
	mutex sync.Mutex
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]byte),
	}
}

func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	val, ok := mc.cache[key]
	return val, ok
}

func (mc *MemoryCache) Set(key string, value []byte) bool {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.cache[key] = value
	return true
}

func (mc *MemoryCache) Clear() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.cache = make(map[string][]byte)
}
