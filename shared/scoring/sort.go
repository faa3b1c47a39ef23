package scoring

import (
	"fmt"
	"sort"
	"strings"

	"video-analytics/internal/models"
)

// SortKey orders a result list by a single attribute.
type SortKey string

const SortPublishedAt SortKey = "published_at"

// ParseSortKey accepts published_at or any metric name.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(SortPublishedAt) {
		return SortPublishedAt, nil
	}
	m, err := ParseMetric(s)
	if err != nil {
		return "", fmt.Errorf("unknown sort key %q", s)
	}
	return SortKey(m), nil
}

// SortBy sorts videos in place, highest first (newest first for
// published_at). Videos without a value for the key sort last; the sort is
// stable.
func SortBy(videos []models.Video, key SortKey) {
	if key == SortPublishedAt || key == "" {
		sort.SliceStable(videos, func(i, j int) bool {
			return videos[i].PublishedAt.After(videos[j].PublishedAt)
		})
		return
	}

	metric := Metric(key)
	sort.SliceStable(videos, func(i, j int) bool {
		a, b := metric.Value(&videos[i]), metric.Value(&videos[j])
		if !finite(b) {
			return finite(a)
		}
		if !finite(a) {
			return false
		}
		return a > b
	})
}
