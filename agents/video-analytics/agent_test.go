package videoanalytics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"video-analytics/internal/models"
	"video-analytics/shared/config"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/pipeline"
	"video-analytics/shared/scheduler"
	"video-analytics/shared/scoring"
)

type stubStats map[string]models.Video

func (s stubStats) Stats(_ context.Context, ids []string) ([]models.Video, error) {
	var out []models.Video
	for _, id := range ids {
		if v, ok := s[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubVotes map[string]models.Votes

func (s stubVotes) Votes(_ context.Context, id string) (models.Votes, error) {
	v, ok := s[id]
	if !ok {
		return models.Votes{}, errors.New("no votes")
	}
	return v, nil
}

type recorder struct {
	successes []scheduler.Metrics
	partial   []error
}

func (r *recorder) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess:         func(m scheduler.Metrics, _ time.Duration) { r.successes = append(r.successes, m) },
		OnPartialFailure:  func(err error, _ time.Duration) { r.partial = append(r.partial, err) },
		OnCriticalFailure: func(error, time.Duration) {},
	}
}

func video(id string, views, likes, comments uint64) models.Video {
	return models.Video{ID: id, Title: "video " + id, Stats: models.Stats{Views: views, Likes: likes, Comments: comments}}
}

type fakeSender struct {
	reports []*models.WatchlistReport
	err     error
}

func (f *fakeSender) SendReport(report *models.WatchlistReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

func newTestAgent(t *testing.T, watchlist []config.WatchlistEntry, opts ...AgentOption) *WatchlistAgent {
	t.Helper()
	cfg := &config.Config{
		Enrichment: pipeline.EnrichConfig{MaxAttempts: 1, BatchSize: 5, BatchInterval: -1},
		Ranking:    config.RankingConfig{Weights: scoring.DefaultWeights(), Top: 3},
		Votes:      config.VotesConfig{CacheTTL: time.Minute},
		Watchlist:  watchlist,
	}
	sources := pipeline.Sources{
		Stats: stubStats{
			"aaaaaaaaaaa": video("aaaaaaaaaaa", 1000, 100, 10),
			"bbbbbbbbbbb": video("bbbbbbbbbbb", 5000, 50, 5),
			"ccccccccccc": video("ccccccccccc", 200, 40, 20),
		},
		Secondary: stubVotes{
			"aaaaaaaaaaa": {Likes: 100, Dislikes: 10, Views: 1000},
			"bbbbbbbbbbb": {Likes: 50, Dislikes: 200, Views: 5000},
		},
	}
	opts = append([]AgentOption{WithSources(sources)}, opts...)
	agent := NewWatchlistAgent(cfg, monitoring.NewMetrics(nil), zaptest.NewLogger(t), opts...)
	require.NoError(t, agent.Initialize(context.Background()))
	return agent
}

func TestWatchlistAgentName(t *testing.T) {
	agent := NewWatchlistAgent(&config.Config{}, nil, nil)
	assert.Equal(t, "Video Analytics Watchlist", agent.Name())
}

func TestWatchlistMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  WatchlistMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  WatchlistMetrics{},
			expected: "ran 0 watchlist entries (0 failed), ranked 0 videos",
		},
		{
			name:     "With failures",
			metrics:  WatchlistMetrics{Entries: 3, Failed: 1, Videos: 12, EnrichmentFailures: 2},
			expected: "ran 3 watchlist entries (1 failed), ranked 12 videos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.metrics.GetSummary())
		})
	}
}

func TestRunOnceRequiresInitialize(t *testing.T) {
	agent := NewWatchlistAgent(&config.Config{}, nil, nil)
	rec := &recorder{}
	assert.Error(t, agent.RunOnce(context.Background(), rec.events()))
}

func TestRunOnceRanksEntries(t *testing.T) {
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Name: "launches", Kind: models.KindLinks, Input: "https://youtu.be/aaaaaaaaaaa, https://youtu.be/bbbbbbbbbbb ccccccccccc"},
		{Kind: models.KindVideo, Input: "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
	})
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, rec.successes, 1)
	metrics := rec.successes[0].(WatchlistMetrics)
	assert.Equal(t, 2, metrics.Entries)
	assert.Zero(t, metrics.Failed)
	assert.Equal(t, 4, metrics.Videos)
	assert.Equal(t, 1, metrics.EnrichmentFailures)
	// ccccccccccc has no votes
	require.Len(t, rec.partial, 1)

	ranking := agent.Rankings()["launches"]
	require.Len(t, ranking, 3)
	for i := 1; i < len(ranking); i++ {
		assert.GreaterOrEqual(t, ranking[i-1].CompositeScore, ranking[i].CompositeScore)
	}
	statuses := map[string]models.EnrichmentStatus{}
	for _, item := range ranking {
		statuses[item.Video.ID] = item.Video.Enrichment
	}
	assert.Equal(t, models.EnrichmentEnriched, statuses["aaaaaaaaaaa"])
	assert.Equal(t, models.EnrichmentFailed, statuses["ccccccccccc"])

	single := agent.Rankings()["video:https://www.youtube.com/watch?v=aaaaaaaaaaa"]
	require.Len(t, single, 1)
	// served from the vote cache filled by the first entry
	assert.Equal(t, models.EnrichmentCached, single[0].Video.Enrichment)
}

func TestRunOncePartialFailure(t *testing.T) {
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Kind: models.KindVideo, Input: "aaaaaaaaaaa"},
		{Name: "broken", Kind: models.KindVideo, Input: "not a video"},
	})
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	require.Len(t, rec.successes, 1)
	assert.Equal(t, 1, rec.successes[0].(WatchlistMetrics).Failed)
	require.Len(t, rec.partial, 1)

	var resErr *pipeline.ResolutionError
	assert.ErrorAs(t, rec.partial[0], &resErr)
	assert.Contains(t, rec.partial[0].Error(), "broken")
}

func TestRunOnceAllEntriesFail(t *testing.T) {
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Kind: models.KindPlaylist, Input: "nothing here"},
	})
	rec := &recorder{}

	err := agent.RunOnce(context.Background(), rec.events())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 watchlist entries failed")
	assert.Empty(t, rec.successes)
}

func TestRunOnceReadsBulkFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.csv")
	require.NoError(t, os.WriteFile(path, []byte("url\nhttps://youtu.be/bbbbbbbbbbb\nhttps://youtu.be/ccccccccccc\n"), 0o600))

	agent := newTestAgent(t, []config.WatchlistEntry{
		{Name: "csv", Kind: models.KindCSV, Input: path},
		{Name: "missing", Kind: models.KindJSON, Input: filepath.Join(t.TempDir(), "absent.json")},
	})
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	assert.Len(t, agent.Rankings()["csv"], 2)
	assert.Equal(t, 1, rec.successes[0].(WatchlistMetrics).Failed)
}

func TestRunOnceEmptyWatchlist(t *testing.T) {
	agent := newTestAgent(t, nil)
	rec := &recorder{}
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	require.Len(t, rec.successes, 1)
	assert.Zero(t, rec.successes[0].(WatchlistMetrics).Entries)
}

func TestRunOnceSendsDigest(t *testing.T) {
	sender := &fakeSender{}
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Name: "pair", Kind: models.KindLinks, Input: "aaaaaaaaaaa bbbbbbbbbbb"},
		{Name: "broken", Kind: models.KindVideo, Input: "nope"},
	}, WithReportSender(sender))
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	require.Len(t, sender.reports, 1)

	report := sender.reports[0]
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "pair", report.Entries[0].Label)
	assert.Len(t, report.Entries[0].Items, 2)
	require.Len(t, rec.partial, 1)

	sender.err = errors.New("smtp down")
	rec = &recorder{}
	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	require.Len(t, rec.partial, 2)
	assert.ErrorIs(t, rec.partial[1], sender.err)
	require.Len(t, rec.successes, 1)
}

func TestDigestTruncatedToTop(t *testing.T) {
	sender := &fakeSender{}
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Name: "all", Kind: models.KindLinks, Input: "aaaaaaaaaaa bbbbbbbbbbb ccccccccccc"},
	}, WithReportSender(sender))
	agent.config.Ranking.Top = 2
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))
	require.Len(t, sender.reports, 1)
	assert.Len(t, sender.reports[0].Entries[0].Items, 2)
	assert.Len(t, agent.Rankings()["all"], 3)
}

func TestRankingsReturnsCopy(t *testing.T) {
	agent := newTestAgent(t, []config.WatchlistEntry{
		{Name: "all", Kind: models.KindLinks, Input: "aaaaaaaaaaa bbbbbbbbbbb"},
	})
	require.NoError(t, agent.RunOnce(context.Background(), (&recorder{}).events()))

	rankings := agent.Rankings()
	require.Len(t, rankings["all"], 2)
	rankings["all"][0].CompositeScore = -1
	delete(rankings, "all")

	again := agent.Rankings()
	require.Len(t, again["all"], 2)
	assert.NotEqual(t, -1.0, again["all"][0].CompositeScore)
}
