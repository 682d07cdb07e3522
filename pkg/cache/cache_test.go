package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	value, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	// Non-positive TTL never stores.
	c.Set("b", 2, 0)
	_, ok = c.Get("b")
	assert.False(t, ok)

	c.Set("c", 3, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("c")
	assert.False(t, ok)
}
