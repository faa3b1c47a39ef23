package storage

import (
	"sync"
	"time"

	"video-analytics/internal/models"
)

// VoteCache keeps secondary-source answers in memory so repeated runs over the
// same videos (watchlist ticks, superseded runs) do not spend the stricter
// rate budget twice. Nothing is written to disk.
type VoteCache struct {
	entries map[string]cachedVotes
	mu      sync.RWMutex
	maxAge  time.Duration
	now     func() time.Time
}

type cachedVotes struct {
	votes     models.Votes
	fetchedAt time.Time
}

// NewVoteCache creates a cache whose entries expire after maxAge. A
// non-positive maxAge disables caching.
func NewVoteCache(maxAge time.Duration) *VoteCache {
	return &VoteCache{
		entries: make(map[string]cachedVotes),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Get returns the cached votes for a video if they are still fresh.
func (c *VoteCache) Get(videoID string) (models.Votes, bool) {
	if c == nil || c.maxAge <= 0 {
		return models.Votes{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[videoID]
	if !exists || c.now().Sub(entry.fetchedAt) >= c.maxAge {
		return models.Votes{}, false
	}
	return entry.votes, true
}

// Put stores the votes of a video.
func (c *VoteCache) Put(videoID string, votes models.Votes) {
	if c == nil || c.maxAge <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[videoID] = cachedVotes{votes: votes, fetchedAt: c.now()}
	if len(c.entries)%256 == 0 {
		c.cleanup()
	}
}

// Len returns the number of entries, fresh or not.
func (c *VoteCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries.
func (c *VoteCache) Cleanup() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanup()
}

func (c *VoteCache) cleanup() {
	cutoff := c.now().Add(-c.maxAge)
	for videoID, entry := range c.entries {
		if !entry.fetchedAt.After(cutoff) {
			delete(c.entries, videoID)
		}
	}
}
