package cache

import (
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

var _ Cache = (*SnapshotCache)(nil)

// SnapshotCache keeps encoded snapshots in a freecache segment with a fixed ttl.
type SnapshotCache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

func NewSnapshotCache(sizeMB int, ttl time.Duration) *SnapshotCache {
	if sizeMB <= 0 {
		sizeMB = 8
	}
	return &SnapshotCache{
		// freecache enforces a 512KB minimum itself
		cache: freecache.NewCache(sizeMB * megabyte),
		ttl:   ttl,
	}
}

func (c *SnapshotCache) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get([]byte(key))
	if err != nil {
		log.Tracef("snapshot cache miss [%s]: %s", key, err)
		return nil, false
	}
	return val, true
}

func (c *SnapshotCache) Set(key string, value []byte) bool {
	if err := c.cache.Set([]byte(key), value, int(c.ttl.Seconds())); err != nil {
		log.Errorf("snapshot cache set [%s]: %s", key, err)
		return false
	}
	return true
}

func (c *SnapshotCache) Clear() {
	c.cache.Clear()
}
