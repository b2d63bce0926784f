package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUWithClock[string](4, 10*time.Second, clock.now)

	c.Set("k", "v")
	clock.advance(9 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entries are dropped on read")
}

func TestLRUOverwriteDeleteAndPurge(t *testing.T) {
	c := NewLRU[int](3, time.Minute)
	c.Set("a", 1)
	c.Set("a", 10)
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.Len())

	c.Set("b", 2)
	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
	c.Set("c", 3)
	assert.Equal(t, 1, c.Len(), "usable after purge")
}

func TestLRUSetIfGeneration(t *testing.T) {
	c := NewLRU[int](4, time.Minute)

	gen := c.Generation()
	assert.True(t, c.SetIfGeneration("a", 1, gen))
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	stale := c.Generation()
	c.Purge()
	assert.False(t, c.SetIfGeneration("b", 2, stale), "value computed before the purge")
	_, ok = c.Get("b")
	assert.False(t, ok)

	assert.True(t, c.SetIfGeneration("b", 3, c.Generation()))
	assert.Equal(t, 1, c.Len())
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[int](8, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%10))
			c.Set(key, i)
			c.Get(key)
			if i%4 == 0 {
				c.Purge()
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
