package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-analytics/internal/models"
)

func video(id string, views, likes, comments uint64, dis *uint64) models.Video {
	v := models.Video{ID: id, Stats: models.Stats{Views: views, Likes: likes, Comments: comments, Dislikes: dis}}
	Refresh(&v, DefaultParams())
	return v
}

func ids(items []models.RankedItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Video.ID
	}
	return out
}

func TestRankOrdersByCompositeDescending(t *testing.T) {
	videos := []models.Video{
		video("low", 100, 1, 0, dislikes(9)),
		video("high", 10_000, 900, 50, dislikes(10)),
		video("mid", 1_000, 40, 5, dislikes(10)),
	}

	ranked := Rank(videos, Weights{MetricViews: 1, MetricPositiveRatio: 1})
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, ids(ranked))
	assert.InDelta(t, 2.0, ranked[0].CompositeScore, 1e-9)
	assert.InDelta(t, 0.0, ranked[2].CompositeScore, 1e-9)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].CompositeScore, ranked[i].CompositeScore)
	}
}

func TestRankConstantMetricNormalizesToOne(t *testing.T) {
	videos := []models.Video{
		video("a", 500, 10, 1, dislikes(1)),
		video("b", 500, 20, 2, dislikes(2)),
		video("c", 500, 30, 3, dislikes(3)),
	}

	ranked := Rank(videos, Weights{MetricViews: 5})
	for _, item := range ranked {
		assert.Equal(t, 1.0, item.Normalized[string(MetricViews)])
		assert.Equal(t, 5.0, item.CompositeScore)
	}
	// All tied: input order is kept.
	assert.Equal(t, []string{"a", "b", "c"}, ids(ranked))
}

func TestRankNonFiniteValuesNormalizeToZero(t *testing.T) {
	videos := []models.Video{
		video("pending", 100, 10, 0, nil),
		video("few", 100, 10, 0, dislikes(2)),
		video("many", 100, 10, 0, dislikes(8)),
	}

	ranked := Rank(videos, Weights{MetricDislikes: 1})
	byID := map[string]models.RankedItem{}
	for _, item := range ranked {
		assert.False(t, math.IsNaN(item.CompositeScore))
		byID[item.Video.ID] = item
	}
	assert.Equal(t, 0.0, byID["pending"].Normalized[string(MetricDislikes)])
	assert.Equal(t, 0.0, byID["few"].Normalized[string(MetricDislikes)])
	assert.Equal(t, 1.0, byID["many"].Normalized[string(MetricDislikes)])
}

func TestRankZeroWeightDisablesMetric(t *testing.T) {
	videos := []models.Video{
		video("a", 10, 1, 0, dislikes(0)),
		video("b", 1_000_000, 1, 0, dislikes(0)),
	}

	ranked := Rank(videos, Weights{MetricViews: 0, MetricComments: 1})
	_, hasViews := ranked[0].Normalized[string(MetricViews)]
	assert.False(t, hasViews)
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
}

func TestRankDeterministic(t *testing.T) {
	var videos []models.Video
	for i := 0; i < 50; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		videos = append(videos, video(id, uint64(1000+i*37%11), uint64(i*13%17), uint64(i%5), dislikes(uint64(i%3))))
	}

	first := Rank(videos, DefaultWeights())
	second := Rank(videos, DefaultWeights())
	assert.Equal(t, ids(first), ids(second))
	for i := range first {
		assert.Equal(t, first[i].CompositeScore, second[i].CompositeScore)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	videos := []models.Video{video("a", 10, 1, 0, dislikes(1)), video("b", 20, 2, 0, dislikes(1))}
	ranked := Rank(videos, DefaultWeights())
	*ranked[0].Video.Stats.Dislikes = 99
	*ranked[1].Video.Stats.Dislikes = 99

	assert.Equal(t, []string{"a", "b"}, []string{videos[0].ID, videos[1].ID})
	assert.Equal(t, uint64(1), *videos[0].Stats.Dislikes)
	assert.Equal(t, uint64(1), *videos[1].Stats.Dislikes)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, DefaultWeights()))
}

func TestSortBy(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	videos := []models.Video{
		video("old", 300, 1, 0, dislikes(1)),
		video("new", 100, 3, 0, nil),
		video("mid", 200, 2, 0, dislikes(5)),
	}
	videos[0].PublishedAt = now.Add(-48 * time.Hour)
	videos[1].PublishedAt = now
	videos[2].PublishedAt = now.Add(-24 * time.Hour)

	sorted := append([]models.Video(nil), videos...)
	SortBy(sorted, SortPublishedAt)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	SortBy(sorted, SortKey(MetricViews))
	assert.Equal(t, []string{"old", "mid", "new"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	SortBy(sorted, SortKey(MetricDislikes))
	assert.Equal(t, []string{"mid", "old", "new"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortPublishedAt, key)

	key, err = ParseSortKey("Views")
	require.NoError(t, err)
	assert.Equal(t, SortKey(MetricViews), key)

	_, err = ParseSortKey("color")
	assert.Error(t, err)
}
