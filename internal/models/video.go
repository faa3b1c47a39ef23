package models

import "time"

// EnrichmentStatus reports whether a video's secondary stats have been applied.
type EnrichmentStatus int

const (
	EnrichmentPending EnrichmentStatus = iota
	EnrichmentEnriched
	EnrichmentCached
	EnrichmentFailed
)

func (s EnrichmentStatus) String() string {
	switch s {
	case EnrichmentEnriched:
		return "enriched"
	case EnrichmentCached:
		return "cached"
	case EnrichmentFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Stats holds the raw counters of a video. Dislikes is nil until the secondary
// source has answered, and stays nil when it never does.
type Stats struct {
	Views    uint64  `json:"views"`
	Likes    uint64  `json:"likes"`
	Dislikes *uint64 `json:"dislikes,omitempty"`
	Comments uint64  `json:"comments"`
}

// DislikeCount returns the dislike count, treating an absent value as zero.
func (s Stats) DislikeCount() uint64 {
	if s.Dislikes == nil {
		return 0
	}
	return *s.Dislikes
}

// Metrics are derived from Stats and recomputed as a whole whenever Stats change.
type Metrics struct {
	PositiveRatio       float64 `json:"positive_ratio"`
	EngagementRatio     float64 `json:"engagement_ratio"`
	QualityRating       float64 `json:"quality_rating"`
	RecommendationScore float64 `json:"recommendation_score"`
}

type Video struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	ChannelTitle string           `json:"channel_title"`
	Thumbnail    string           `json:"thumbnail"`
	PublishedAt  time.Time        `json:"published_at"`
	URL          string           `json:"url"`
	Stats        Stats            `json:"stats"`
	Metrics      Metrics          `json:"metrics"`
	Enrichment   EnrichmentStatus `json:"enrichment"`
}

// Provisional reports whether the metrics were computed without secondary stats.
func (v *Video) Provisional() bool {
	return v.Enrichment == EnrichmentPending
}

// Clone returns a deep copy, so snapshots handed to callers never alias
// counters that are still being enriched.
func (v Video) Clone() Video {
	if v.Stats.Dislikes != nil {
		d := *v.Stats.Dislikes
		v.Stats.Dislikes = &d
	}
	return v
}

// Votes is the answer of the secondary stats endpoint.
type Votes struct {
	ID       string  `json:"id"`
	Likes    uint64  `json:"likes"`
	Dislikes uint64  `json:"dislikes"`
	Views    uint64  `json:"viewCount"`
	Rating   float64 `json:"rating"`
	Deleted  bool    `json:"deleted"`
}

// RankedItem is a video with the composite score it received in one ranking
// request. It is never stored back on the video.
type RankedItem struct {
	Video          Video              `json:"video"`
	CompositeScore float64            `json:"composite_score"`
	Normalized     map[string]float64 `json:"normalized"`
}

// Comment is a top-level comment of a video. SentimentScore runs from 0
// (negative) to 100 (positive) and is nil until scored.
type Comment struct {
	ID             string   `json:"id"`
	Author         string   `json:"author"`
	Text           string   `json:"text"`
	Likes          int64    `json:"likes"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// CommentAnalysis is the AI summary of a video's comments. Sentiment is the
// mean of the scored comments, nil when none could be scored.
type CommentAnalysis struct {
	VideoID   string    `json:"video_id"`
	Language  string    `json:"language"`
	Comments  int       `json:"comments"`
	Summary   string    `json:"summary"`
	Sentiment *float64  `json:"sentiment,omitempty"`
	Scored    []Comment `json:"scored_comments,omitempty"`
	Created   time.Time `json:"created"`
}

// WatchlistReport is the digest of one watchlist tick.
type WatchlistReport struct {
	Date    time.Time
	Entries []WatchlistRanking
}

// WatchlistRanking holds the top ranked videos of one watchlist entry.
type WatchlistRanking struct {
	Label string
	Items []RankedItem
}
