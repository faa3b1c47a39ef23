package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-analytics/internal/models"
)

func TestVoteCacheGetPut(t *testing.T) {
	cache := NewVoteCache(time.Hour)

	_, ok := cache.Get("abc12345678")
	assert.False(t, ok)

	cache.Put("abc12345678", models.Votes{ID: "abc12345678", Dislikes: 10})
	votes, ok := cache.Get("abc12345678")
	require.True(t, ok)
	assert.Equal(t, uint64(10), votes.Dislikes)
	assert.Equal(t, 1, cache.Len())
}

func TestVoteCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewVoteCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.Put("old", models.Votes{Dislikes: 1})
	now = now.Add(30 * time.Second)
	cache.Put("new", models.Votes{Dislikes: 2})

	now = now.Add(45 * time.Second)
	_, ok := cache.Get("old")
	assert.False(t, ok, "entry older than maxAge must not be served")
	_, ok = cache.Get("new")
	assert.True(t, ok)

	cache.Cleanup()
	assert.Equal(t, 1, cache.Len())
}

func TestVoteCacheDisabled(t *testing.T) {
	cache := NewVoteCache(0)
	cache.Put("abc12345678", models.Votes{Dislikes: 1})
	_, ok := cache.Get("abc12345678")
	assert.False(t, ok)

	var nilCache *VoteCache
	nilCache.Put("x", models.Votes{})
	_, ok = nilCache.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, nilCache.Len())
}

func TestVoteCacheConcurrency(t *testing.T) {
	cache := NewVoteCache(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			cache.Put(id, models.Votes{Dislikes: uint64(i)})
			_, _ = cache.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, cache.Len())
}
