package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"video-analytics/internal/models"
	"video-analytics/shared/config"
	"video-analytics/shared/pipeline"
)

// maxPageSize is the Data API ceiling for maxResults on list calls.
const maxPageSize = 50

// Client is the primary data source: listing, search, channel lookup, stats
// and comments all go through the Data API with an API key.
type Client struct {
	service *youtube.Service
	timeout time.Duration
	logger  *zap.Logger
}

var (
	_ pipeline.Lister      = (*Client)(nil)
	_ pipeline.Searcher    = (*Client)(nil)
	_ pipeline.Directory   = (*Client)(nil)
	_ pipeline.StatsSource = (*Client)(nil)
)

// NewClient creates a Data API client. Extra options are appended after the
// ones derived from cfg, so tests can redirect the endpoint and HTTP client.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		service: service,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *Client) ListPage(ctx context.Context, playlistID, cursor string) (pipeline.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(maxPageSize)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("failed to list playlist items: %w", err)
	}

	page := pipeline.Page{NextCursor: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			page.IDs = append(page.IDs, item.ContentDetails.VideoId)
		}
	}
	return page, nil
}

func (c *Client) SearchPage(ctx context.Context, query, cursor string, pageSize int) (pipeline.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(int64(min(max(pageSize, 1), maxPageSize)))
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return pipeline.Page{}, fmt.Errorf("failed to search videos: %w", err)
	}

	page := pipeline.Page{NextCursor: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			page.IDs = append(page.IDs, item.Id.VideoId)
		}
	}
	return page, nil
}

// LookupOwner resolves a @handle or legacy user name to the uploads playlist
// of its channel, falling back to a channel search for custom names.
func (c *Client) LookupOwner(ctx context.Context, name string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.Channels.List([]string{"contentDetails"})
	if strings.HasPrefix(name, "@") {
		call = call.ForHandle(name)
	} else {
		call = call.ForUsername(name)
	}

	resp, err := call.Context(lookupCtx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up channel %s: %w", name, err)
	}
	if uploads := uploadsPlaylist(resp.Items); uploads != "" {
		return uploads, nil
	}

	c.logger.Debug("Channel lookup missed, searching by name", zap.String("owner", name))
	channelID, err := c.searchChannel(ctx, strings.TrimPrefix(name, "@"))
	if err != nil {
		return "", err
	}
	return c.ChannelUploads(ctx, channelID)
}

func (c *Client) searchChannel(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Search.List([]string{"id"}).
		Q(name).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search channel %s: %w", name, err)
	}
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			return item.Id.ChannelId, nil
		}
	}
	return "", fmt.Errorf("channel %s: %w", name, pipeline.ErrOwnerNotFound)
}

func (c *Client) ChannelUploads(ctx context.Context, channelID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}
	if uploads := uploadsPlaylist(resp.Items); uploads != "" {
		return uploads, nil
	}
	return "", fmt.Errorf("channel %s: %w", channelID, pipeline.ErrOwnerNotFound)
}

func uploadsPlaylist(channels []*youtube.Channel) string {
	for _, channel := range channels {
		if channel.ContentDetails != nil && channel.ContentDetails.RelatedPlaylists != nil {
			if uploads := channel.ContentDetails.RelatedPlaylists.Uploads; uploads != "" {
				return uploads
			}
		}
	}
	return ""
}

// Stats fetches snippet and statistics for up to 50 IDs. Unknown, private and
// deleted videos are simply absent from the result.
func (c *Client) Stats(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxPageSize {
		return nil, fmt.Errorf("at most %d video IDs per stats request, got %d", maxPageSize, len(ids))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", err)
	}

	videos := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, toVideo(item))
	}
	return videos, nil
}

func toVideo(item *youtube.Video) models.Video {
	video := models.Video{
		ID:  item.Id,
		URL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
	}

	if s := item.Snippet; s != nil {
		video.Title = s.Title
		video.Description = s.Description
		video.ChannelTitle = s.ChannelTitle
		video.Thumbnail = thumbnailURL(s.Thumbnails)
		if publishedAt, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}
	}

	if st := item.Statistics; st != nil {
		video.Stats.Views = st.ViewCount
		video.Stats.Likes = st.LikeCount
		video.Stats.Comments = st.CommentCount
	}
	return video
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.Medium, t.High, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// Comments returns up to n top-level comments ordered by relevance.
func (c *Client) Comments(ctx context.Context, videoID string, n int) ([]models.Comment, error) {
	var comments []models.Comment
	cursor := ""

	for len(comments) < n {
		pageCtx, cancel := context.WithTimeout(ctx, c.timeout)
		call := c.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			Order("relevance").
			TextFormat("plainText").
			MaxResults(int64(min(n-len(comments), 100)))
		if cursor != "" {
			call = call.PageToken(cursor)
		}
		resp, err := call.Context(pageCtx).Do()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to list comments of %s: %w", videoID, err)
		}

		for _, thread := range resp.Items {
			if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			s := thread.Snippet.TopLevelComment.Snippet
			comments = append(comments, models.Comment{
				ID:     thread.Id,
				Author: s.AuthorDisplayName,
				Text:   s.TextDisplay,
				Likes:  s.LikeCount,
			})
		}

		if resp.NextPageToken == "" || resp.NextPageToken == cursor {
			break
		}
		cursor = resp.NextPageToken
	}

	if len(comments) > n {
		comments = comments[:n]
	}
	c.logger.Debug("Fetched comments", zap.String("video_id", videoID), zap.Int("count", len(comments)))
	return comments, nil
}
