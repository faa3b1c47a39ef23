package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"video-analytics/internal/models"
)

// Metric names a numeric attribute of a video that can take part in ranking.
type Metric string

const (
	MetricViews               Metric = "views"
	MetricLikes               Metric = "likes"
	MetricDislikes            Metric = "dislikes"
	MetricComments            Metric = "comments"
	MetricPositiveRatio       Metric = "positive_ratio"
	MetricEngagementRatio     Metric = "engagement_ratio"
	MetricQualityRating       Metric = "quality_rating"
	MetricRecommendationScore Metric = "recommendation_score"
)

// AllMetrics is the fixed order in which composite scores are summed.
var AllMetrics = []Metric{
	MetricViews,
	MetricLikes,
	MetricDislikes,
	MetricComments,
	MetricPositiveRatio,
	MetricEngagementRatio,
	MetricQualityRating,
	MetricRecommendationScore,
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllMetrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value reads the metric from a video.
func (m Metric) Value(v *models.Video) float64 {
	switch m {
	case MetricViews:
		return float64(v.Stats.Views)
	case MetricLikes:
		return float64(v.Stats.Likes)
	case MetricDislikes:
		if v.Stats.Dislikes == nil {
			return math.NaN()
		}
		return float64(*v.Stats.Dislikes)
	case MetricComments:
		return float64(v.Stats.Comments)
	case MetricPositiveRatio:
		return v.Metrics.PositiveRatio
	case MetricEngagementRatio:
		return v.Metrics.EngagementRatio
	case MetricQualityRating:
		return v.Metrics.QualityRating
	case MetricRecommendationScore:
		return v.Metrics.RecommendationScore
	}
	return math.NaN()
}

// Weights assigns a weight to each metric. Weights need not sum to anything
// in particular; zero or missing disables a metric.
type Weights map[Metric]float64

// DefaultWeights favours quality over raw reach.
func DefaultWeights() Weights {
	return Weights{
		MetricViews:               10,
		MetricPositiveRatio:       30,
		MetricEngagementRatio:     20,
		MetricQualityRating:       25,
		MetricRecommendationScore: 15,
	}
}

// Rank min-max normalizes every weighted metric across videos and orders them
// by the weighted sum, highest first. A metric that is constant across the
// batch normalizes to 1 for everyone; a missing or non-finite value
// normalizes to 0. Ties keep input order.
func Rank(videos []models.Video, weights Weights) []models.RankedItem {
	ranked := make([]models.RankedItem, len(videos))
	for i := range videos {
		ranked[i] = models.RankedItem{
			Video:      videos[i].Clone(),
			Normalized: make(map[string]float64),
		}
	}

	for _, metric := range AllMetrics {
		weight := weights[metric]
		if weight == 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
			continue
		}

		values := make([]float64, len(ranked))
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range ranked {
			v := metric.Value(&ranked[i].Video)
			values[i] = v
			if !finite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		for i, v := range values {
			n := normalize(v, lo, hi)
			ranked[i].Normalized[string(metric)] = n
			ranked[i].CompositeScore += n * weight
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	return ranked
}

func normalize(v, lo, hi float64) float64 {
	if !finite(v) {
		return 0
	}
	if hi == lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
