// Package votes talks to the public dislike-count API used to fill in the
// counters the Data API no longer exposes.
package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"video-analytics/internal/models"
	"video-analytics/shared/config"
	"video-analytics/shared/pipeline"
	"video-analytics/shared/retry"
)

var (
	ErrNotFound    = errors.New("votes: video not found")
	ErrRateLimited = errors.New("votes: rate limited")
)

// Client fetches vote counts one video at a time. Per-request deadlines come
// from the caller's context.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

var _ pipeline.SecondarySource = (*Client)(nil)

func NewClient(cfg *config.VotesConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{},
		logger:  logger,
	}
}

// Votes returns the counts of one video. Unknown videos and malformed
// requests are marked permanent so they are not retried.
func (c *Client) Votes(ctx context.Context, videoID string) (models.Votes, error) {
	endpoint := fmt.Sprintf("%s/votes?videoId=%s", c.baseURL, url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Votes{}, retry.Permanent(fmt.Errorf("failed to create votes request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Votes{}, fmt.Errorf("failed to fetch votes for %s: %w", videoID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return models.Votes{}, retry.Permanent(fmt.Errorf("%s: %w", videoID, ErrNotFound))
	case resp.StatusCode == http.StatusBadRequest:
		return models.Votes{}, retry.Permanent(fmt.Errorf("votes API rejected %s: status %d", videoID, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.Votes{}, fmt.Errorf("%s: %w", videoID, ErrRateLimited)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Votes{}, fmt.Errorf("votes API returned status %d for %s: %s", resp.StatusCode, videoID, strings.TrimSpace(string(body)))
	}

	var votes models.Votes
	if err := json.NewDecoder(resp.Body).Decode(&votes); err != nil {
		return models.Votes{}, fmt.Errorf("failed to decode votes response: %w", err)
	}
	if votes.Deleted {
		c.logger.Debug("Votes API reports video as deleted", zap.String("video_id", videoID))
	}
	return votes, nil
}
