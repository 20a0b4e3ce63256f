package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaches(t *testing.T) {
	for name, c := range map[string]Cache{
		"freecache": NewSnapshotCache(1, time.Minute),
		"memory":    NewMemoryCache(),
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := c.Get("data")
			assert.False(t, ok)

			require.True(t, c.Set("data", []byte(`{"user":{}}`)))
			val, ok := c.Get("data")
			require.True(t, ok)
			assert.Equal(t, `{"user":{}}`, string(val))

			require.True(t, c.Set("data", []byte(`{}`)))
			val, _ = c.Get("data")
			assert.Equal(t, `{}`, string(val))

			c.Clear()
			_, ok = c.Get("data")
			assert.False(t, ok)
		})
	}
}

func TestSnapshotCache_Expires(t *testing.T) {
	c := NewSnapshotCache(1, time.Second)
	require.True(t, c.Set("data", []byte("x")))
	_, ok := c.Get("data")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("data")
		return !ok
	}, 3*time.Second, 100*time.Millisecond)
}
