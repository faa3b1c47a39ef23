// Package scoring derives per-video metrics from raw counters and ranks a set
// of videos by a weighted, min-max normalized composite score. Everything in
// this package is pure and deterministic.
package scoring

import (
	"math"

	"video-analytics/internal/models"
)

// Params holds the constants of the derived metrics. The weights of the
// recommendation score are relative to each other; Scale maps the weighted
// sum into a readable range.
type Params struct {
	EngagementWeight    float64 `yaml:"engagement_weight"`
	PositiveWeight      float64 `yaml:"positive_weight"`
	CommentWeight       float64 `yaml:"comment_weight"`
	RecommendationScale float64 `yaml:"recommendation_scale"`

	// Quality rating curve: a logistic function over a blend of the positive
	// ratio and the log-scaled engagement ratio.
	QualityPositiveWeight    float64 `yaml:"quality_positive_weight"`
	QualityEngagementCeiling float64 `yaml:"quality_engagement_ceiling"`
	QualitySteepness         float64 `yaml:"quality_steepness"`
	QualityMidpoint          float64 `yaml:"quality_midpoint"`
}

// DefaultParams returns the constants used when nothing is configured.
func DefaultParams() Params {
	return Params{
		EngagementWeight:         0.4,
		PositiveWeight:           0.4,
		CommentWeight:            0.2,
		RecommendationScale:      100,
		QualityPositiveWeight:    0.6,
		QualityEngagementCeiling: 20,
		QualitySteepness:         8,
		QualityMidpoint:          0.5,
	}
}

// WithDefaults fills zero-valued fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.EngagementWeight == 0 && p.PositiveWeight == 0 && p.CommentWeight == 0 {
		p.EngagementWeight, p.PositiveWeight, p.CommentWeight = d.EngagementWeight, d.PositiveWeight, d.CommentWeight
	}
	if p.RecommendationScale <= 0 {
		p.RecommendationScale = d.RecommendationScale
	}
	if p.QualityPositiveWeight <= 0 || p.QualityPositiveWeight > 1 {
		p.QualityPositiveWeight = d.QualityPositiveWeight
	}
	if p.QualityEngagementCeiling <= 0 {
		p.QualityEngagementCeiling = d.QualityEngagementCeiling
	}
	if p.QualitySteepness <= 0 {
		p.QualitySteepness = d.QualitySteepness
	}
	if p.QualityMidpoint <= 0 || p.QualityMidpoint >= 1 {
		p.QualityMidpoint = d.QualityMidpoint
	}
	return p
}

// Derive computes all metrics of one video. Absent dislikes count as zero.
func Derive(s models.Stats, p Params) models.Metrics {
	likes := float64(s.Likes)
	dislikes := float64(s.DislikeCount())
	views := float64(s.Views)
	comments := float64(s.Comments)

	positive := ratio(likes, likes+dislikes)
	engagement := ratio(likes, views)

	return models.Metrics{
		PositiveRatio:       round2(positive * 100),
		EngagementRatio:     round2(engagement * 100),
		QualityRating:       round2(qualityRating(positive, engagement*100, p)),
		RecommendationScore: round2(recommendationScore(likes, dislikes, views, comments, p)),
	}
}

// Refresh recomputes the metrics of v from its current stats.
func Refresh(v *models.Video, p Params) {
	v.Metrics = Derive(v.Stats, p)
}

// qualityRating maps the positive ratio (0..1) and engagement percentage onto
// (0, 100). Engagement is log-scaled and saturates at the configured ceiling,
// so very large channels do not win on scale alone.
func qualityRating(positive, engagementPct float64, p Params) float64 {
	engagement := math.Log1p(engagementPct) / math.Log1p(p.QualityEngagementCeiling)
	if engagement > 1 {
		engagement = 1
	}
	x := p.QualityPositiveWeight*positive + (1-p.QualityPositiveWeight)*engagement
	return 100 / (1 + math.Exp(-p.QualitySteepness*(x-p.QualityMidpoint)))
}

func recommendationScore(likes, dislikes, views, comments float64, p Params) float64 {
	engagementRate := math.Min(ratio(likes+dislikes+comments, views), 1)
	positive := ratio(likes, likes+dislikes)
	commentRate := math.Min(ratio(comments, views), 1)

	total := p.EngagementWeight + p.PositiveWeight + p.CommentWeight
	if total <= 0 {
		return 0
	}
	sum := p.EngagementWeight*engagementRate + p.PositiveWeight*positive + p.CommentWeight*commentRate
	// Weights are normalized so the score never exceeds Scale.
	return p.RecommendationScale * sum / total
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
