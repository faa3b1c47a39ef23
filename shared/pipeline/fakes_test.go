package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"video-analytics/internal/models"
)

var errFlaky = errors.New("secondary endpoint unavailable")

type fakeLister struct {
	pages map[string]Page // keyed by cursor
	err   error
	calls int
}

func (f *fakeLister) ListPage(_ context.Context, _ string, cursor string) (Page, error) {
	f.calls++
	if f.err != nil {
		return Page{}, f.err
	}
	return f.pages[cursor], nil
}

// fakeSearcher serves total sequential IDs in pages of the requested size.
type fakeSearcher struct {
	total     int
	pageSizes []int
}

func (f *fakeSearcher) SearchPage(_ context.Context, query, cursor string, pageSize int) (Page, error) {
	f.pageSizes = append(f.pageSizes, pageSize)
	offset := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "offset-%d", &offset)
	}
	var page Page
	for i := offset; i < min(offset+pageSize, f.total); i++ {
		page.IDs = append(page.IDs, fmt.Sprintf("%s-%03d", query, i))
	}
	if offset+pageSize < f.total {
		page.NextCursor = fmt.Sprintf("offset-%d", offset+pageSize)
	}
	return page, nil
}

type fakeDirectory struct {
	owners   map[string]string
	channels map[string]string
	err      error
	lookups  []string
}

func (f *fakeDirectory) LookupOwner(_ context.Context, name string) (string, error) {
	f.lookups = append(f.lookups, name)
	if f.err != nil {
		return "", f.err
	}
	uploads, ok := f.owners[name]
	if !ok {
		return "", ErrOwnerNotFound
	}
	return uploads, nil
}

func (f *fakeDirectory) ChannelUploads(_ context.Context, channelID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.channels[channelID], nil
}

type fakeStats struct {
	mu     sync.Mutex
	videos map[string]models.Video
	err    error
	calls  [][]string
}

func newFakeStats(videos ...models.Video) *fakeStats {
	f := &fakeStats{videos: make(map[string]models.Video)}
	for _, v := range videos {
		f.videos[v.ID] = v
	}
	return f
}

func (f *fakeStats) Stats(_ context.Context, ids []string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Video
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// fakeVotes answers through respond, counting calls per video.
type fakeVotes struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(ctx context.Context, videoID string, call int) (models.Votes, error)
}

func newFakeVotes(respond func(ctx context.Context, videoID string, call int) (models.Votes, error)) *fakeVotes {
	return &fakeVotes{calls: make(map[string]int), respond: respond}
}

func (f *fakeVotes) Votes(ctx context.Context, videoID string) (models.Votes, error) {
	f.mu.Lock()
	f.calls[videoID]++
	call := f.calls[videoID]
	f.mu.Unlock()
	return f.respond(ctx, videoID, call)
}

func (f *fakeVotes) callsFor(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[videoID]
}

func (f *fakeVotes) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func staticVotes(dislikes uint64) func(context.Context, string, int) (models.Votes, error) {
	return func(_ context.Context, videoID string, _ int) (models.Votes, error) {
		return models.Votes{ID: videoID, Dislikes: dislikes}, nil
	}
}

func statsVideo(id string, views, likes, comments uint64) models.Video {
	return models.Video{
		ID:    id,
		Title: "Video " + id,
		Stats: models.Stats{Views: views, Likes: likes, Comments: comments},
	}
}

// fastEnrich keeps tests quick while exercising the real retry and batch
// paths.
func fastEnrich() EnrichConfig {
	return EnrichConfig{
		MaxAttempts:       3,
		RetryDelay:        time.Millisecond,
		BackoffMultiplier: 1,
		MaxRetryDelay:     5 * time.Millisecond,
		BatchSize:         5,
		BatchInterval:     -1,
		RequestTimeout:    time.Second,
	}
}

func collect(ch <-chan Update) []Update {
	var updates []Update
	for u := range ch {
		updates = append(updates, u)
	}
	return updates
}
