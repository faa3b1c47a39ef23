package pipeline

import (
	"context"

	"video-analytics/internal/models"
)

// Page is one page of a paginated listing.
type Page struct {
	IDs        []string
	NextCursor string
}

// Lister pages through the items of a collection (playlist).
type Lister interface {
	ListPage(ctx context.Context, playlistID, cursor string) (Page, error)
}

// Searcher pages through search results.
type Searcher interface {
	SearchPage(ctx context.Context, query, cursor string, pageSize int) (Page, error)
}

// Directory resolves channels to the collection holding their uploads.
type Directory interface {
	// LookupOwner resolves an owner name (@handle, username or custom name).
	LookupOwner(ctx context.Context, name string) (string, error)
	// ChannelUploads resolves a UC… channel ID.
	ChannelUploads(ctx context.Context, channelID string) (string, error)
}

// StatsSource returns primary stats and metadata for a batch of video IDs.
// Videos the source does not know are left out of the result.
type StatsSource interface {
	Stats(ctx context.Context, ids []string) ([]models.Video, error)
}

// SecondarySource returns the secondary stats of a single video.
type SecondarySource interface {
	Votes(ctx context.Context, videoID string) (models.Votes, error)
}
