package cache

// Cache holds encoded responses keyed by name.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) bool
	Clear()
}
