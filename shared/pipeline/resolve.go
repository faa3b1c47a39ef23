package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"video-analytics/internal/models"
	"video-analytics/shared/extract"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
	searchPageSize     = 50
)

// Input is a raw reference to analyze. Text carries the URL, ID, query or
// bulk document; Entries, when set, carries already-split bulk references
// and takes precedence over Text for bulk kinds.
type Input struct {
	Kind    models.InputKind
	Text    string
	Entries []string
}

// Resolver turns an Input into the ordered list of video IDs it refers to.
type Resolver struct {
	lister    Lister
	searcher  Searcher
	directory Directory
	logger    *zap.Logger
}

func NewResolver(lister Lister, searcher Searcher, directory Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		lister:    lister,
		searcher:  searcher,
		directory: directory,
		logger:    logger,
	}
}

// ClampSearchLimit applies the default to non-positive limits and caps the
// rest at MaxSearchLimit.
func ClampSearchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return min(limit, MaxSearchLimit)
}

// Resolve returns the video IDs of in, possibly with duplicates. limit caps
// search results only. onPaginate, when set, is called once before the
// first listing request of a collection input.
func (r *Resolver) Resolve(ctx context.Context, in Input, limit int, onPaginate func()) ([]string, error) {
	text := strings.TrimSpace(in.Text)
	if onPaginate == nil {
		onPaginate = func() {}
	}

	switch in.Kind {
	case models.KindVideo:
		id, ok := extract.VideoID(text)
		if !ok {
			return nil, &ResolutionError{Kind: in.Kind, Input: text, Reason: "no video ID found"}
		}
		return []string{id}, nil

	case models.KindPlaylist:
		playlistID, ok := extract.PlaylistID(text)
		if !ok {
			return nil, &ResolutionError{Kind: in.Kind, Input: text, Reason: "no playlist ID found"}
		}
		onPaginate()
		return r.listPlaylist(ctx, playlistID)

	case models.KindChannel:
		uploads, err := r.channelUploads(ctx, in.Kind, text)
		if err != nil {
			return nil, err
		}
		onPaginate()
		return r.listPlaylist(ctx, uploads)

	case models.KindSearch:
		if text == "" {
			return nil, &ResolutionError{Kind: in.Kind, Reason: "empty search query"}
		}
		if r.searcher == nil {
			return nil, &ResolutionError{Kind: in.Kind, Input: text, Reason: "search is not available"}
		}
		limit = ClampSearchLimit(limit)
		onPaginate()
		return Paginate(ctx, fmt.Sprintf("search %q", text), func(ctx context.Context, cursor string) (Page, error) {
			return r.searcher.SearchPage(ctx, text, cursor, min(searchPageSize, limit))
		}, limit)

	case models.KindJSON, models.KindCSV, models.KindLinks:
		return r.resolveBulk(in)

	default:
		return nil, &ResolutionError{Kind: in.Kind, Input: text, Reason: "unsupported input kind"}
	}
}

func (r *Resolver) channelUploads(ctx context.Context, kind models.InputKind, text string) (string, error) {
	if r.directory == nil {
		return "", &ResolutionError{Kind: kind, Input: text, Reason: "channel lookup is not available"}
	}

	if channelID, ok := extract.ChannelID(text); ok {
		uploads, err := r.directory.ChannelUploads(ctx, channelID)
		if err != nil {
			return "", &UpstreamError{Op: "look up uploads of channel", Target: channelID, Err: err}
		}
		return uploads, nil
	}

	owner, ok := extract.Owner(text)
	if !ok {
		// Free text is treated as a channel name and left to the lookup.
		if text == "" || strings.Contains(text, "/") {
			return "", &ResolutionError{Kind: kind, Input: text, Reason: "no channel, handle or user name found"}
		}
		owner = text
	}
	uploads, err := r.directory.LookupOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, ErrOwnerNotFound) {
			return "", &ResolutionError{Kind: kind, Input: text, Reason: fmt.Sprintf("no channel named %s", owner)}
		}
		return "", &UpstreamError{Op: "look up channel", Target: owner, Err: err}
	}
	r.logger.Debug("Resolved channel owner", zap.String("owner", owner), zap.String("playlist_id", uploads))
	return uploads, nil
}

func (r *Resolver) listPlaylist(ctx context.Context, playlistID string) ([]string, error) {
	if r.lister == nil {
		return nil, &ResolutionError{Kind: models.KindPlaylist, Input: playlistID, Reason: "playlist listing is not available"}
	}
	return Paginate(ctx, "playlist "+playlistID, func(ctx context.Context, cursor string) (Page, error) {
		return r.lister.ListPage(ctx, playlistID, cursor)
	}, 0)
}

func (r *Resolver) resolveBulk(in Input) ([]string, error) {
	refs := in.Entries
	if len(refs) == 0 {
		var err error
		switch in.Kind {
		case models.KindJSON:
			refs, err = extract.ParseJSON(strings.NewReader(in.Text))
		case models.KindCSV:
			refs, err = extract.ParseCSV(strings.NewReader(in.Text))
		default:
			refs = extract.SplitLinks(in.Text)
		}
		if err != nil {
			return nil, &ResolutionError{Kind: in.Kind, Reason: err.Error()}
		}
	}

	ids, rejected := extract.VideoIDs(refs)
	if len(ids) == 0 {
		return nil, &ResolutionError{Kind: in.Kind, Reason: fmt.Sprintf("none of %d entries is a video reference", len(refs))}
	}
	if rejected > 0 {
		r.logger.Info("Skipped unrecognized bulk entries", zap.String("kind", in.Kind.String()), zap.Int("rejected", rejected))
	}
	return ids, nil
}
