// ABOUTME: Tests for the webhook dedupe cache.
// ABOUTME: Validates TTL expiry, size bounds, and atomicity of CheckAndMark.

package relay

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_CheckAndMark_NewKey(t *testing.T) {
	cache := NewCache(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("mid-1"), "first sighting is not a duplicate")
	assert.True(t, cache.CheckAndMark("mid-1"), "second sighting is a duplicate")
}

func TestCache_CheckAndMark_Expired(t *testing.T) {
	cache := NewCache(10*time.Millisecond, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("mid-1"))

	time.Sleep(20 * time.Millisecond)

	assert.False(t, cache.CheckAndMark("mid-1"), "expired entries are forgotten")
}

func TestCache_SizeBound(t *testing.T) {
	cache := NewCache(5*time.Minute, 3)
	defer cache.Close()

	for i := 0; i < 3; i++ {
		cache.CheckAndMark(fmt.Sprintf("mid-%d", i))
		time.Sleep(time.Millisecond)
	}

	// A fourth key evicts the oldest
	assert.False(t, cache.CheckAndMark("mid-3"))
	assert.False(t, cache.CheckAndMark("mid-0"), "oldest entry should have been evicted")
	assert.True(t, cache.CheckAndMark("mid-2"))
}

func TestCache_RemoveExpired(t *testing.T) {
	cache := NewCache(10*time.Millisecond, 100)
	defer cache.Close()

	cache.CheckAndMark("mid-1")
	cache.CheckAndMark("mid-2")

	time.Sleep(20 * time.Millisecond)
	cache.removeExpired()

	cache.mu.Lock()
	remaining := len(cache.seen)
	cache.mu.Unlock()
	assert.Equal(t, 0, remaining, "sweep should drop expired entries")
}

func TestCache_Atomicity(t *testing.T) {
	cache := NewCache(5*time.Minute, 1000)
	defer cache.Close()

	const numGoroutines = 100

	var firsts int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if !cache.CheckAndMark("contested-mid") {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), firsts, "exactly one goroutine sees the key as new")
}

func TestCache_Close(t *testing.T) {
	cache := NewCache(5*time.Minute, 100)

	cache.CheckAndMark("mid-1")
	cache.Close()
	// Multiple closes must not panic
	cache.Close()
}
