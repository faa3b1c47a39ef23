package videoanalytics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"video-analytics/agents/video-analytics/votes"
	"video-analytics/agents/video-analytics/youtube"
	"video-analytics/internal/models"
	"video-analytics/shared/config"
	"video-analytics/shared/email"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/pipeline"
	"video-analytics/shared/scheduler"
	"video-analytics/shared/scoring"
	"video-analytics/shared/storage"
)

// WatchlistAgent implements the scheduler.Agent interface. Every tick it runs
// the configured watchlist through the pipeline and ranks each result set.
type WatchlistAgent struct {
	config       *config.Config
	sources      pipeline.Sources
	orchestrator *pipeline.Orchestrator
	cache        *storage.VoteCache
	reports      reportSender
	metrics      *monitoring.Metrics
	logger       *zap.Logger

	mu       sync.RWMutex
	rankings map[string][]models.RankedItem
}

var _ scheduler.Agent = (*WatchlistAgent)(nil)

// reportSender delivers the digest of a tick.
type reportSender interface {
	SendReport(report *models.WatchlistReport) error
}

type AgentOption func(*WatchlistAgent)

// WithSources replaces the API clients Initialize would create.
func WithSources(sources pipeline.Sources) AgentOption {
	return func(a *WatchlistAgent) {
		a.sources = sources
	}
}

// WithReportSender replaces the email digest sender.
func WithReportSender(sender reportSender) AgentOption {
	return func(a *WatchlistAgent) {
		a.reports = sender
	}
}

func NewWatchlistAgent(cfg *config.Config, metrics *monitoring.Metrics, logger *zap.Logger, opts ...AgentOption) *WatchlistAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &WatchlistAgent{
		config:   cfg,
		metrics:  metrics,
		logger:   logger,
		rankings: make(map[string][]models.RankedItem),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *WatchlistAgent) Name() string {
	return "Video Analytics Watchlist"
}

func (a *WatchlistAgent) Initialize(ctx context.Context) error {
	a.logger.Info("Initializing agent", zap.String("agent", a.Name()))

	if a.sources.Stats == nil {
		client, err := youtube.NewClient(ctx, &a.config.YouTube, a.logger.Named("youtube"))
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.sources.Lister = client
		a.sources.Searcher = client
		a.sources.Directory = client
		a.sources.Stats = client
		a.logger.Info("YouTube client initialized")
	}

	if a.sources.Secondary == nil {
		a.sources.Secondary = votes.NewClient(&a.config.Votes, a.logger.Named("votes"))
		a.logger.Info("Votes client initialized", zap.String("base_url", a.config.Votes.BaseURL))
	}

	if a.reports == nil && a.config.Email.Enabled() {
		a.reports = email.NewSender(&a.config.Email)
		a.logger.Info("Email digest enabled", zap.String("to", a.config.Email.ToEmail))
	}

	if a.cache == nil {
		a.cache = storage.NewVoteCache(a.config.Votes.CacheTTL)
	}

	a.orchestrator = pipeline.NewOrchestrator(a.sources, pipeline.OrchestratorConfig{
		Enrichment: a.config.Enrichment,
		Scoring:    a.config.Scoring,
		Cache:      a.cache,
		Metrics:    a.metrics,
		Logger:     a.logger.Named("pipeline"),
	})

	a.logger.Info("Agent initialized", zap.Int("watchlist_entries", len(a.config.Watchlist)))
	return nil
}

// WatchlistMetrics summarizes one tick.
type WatchlistMetrics struct {
	Entries            int
	Failed             int
	Videos             int
	Missing            int
	EnrichmentFailures int
}

func (m WatchlistMetrics) GetSummary() string {
	return fmt.Sprintf("ran %d watchlist entries (%d failed), ranked %d videos", m.Entries, m.Failed, m.Videos)
}

func (a *WatchlistAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	if a.orchestrator == nil {
		return fmt.Errorf("agent not initialized")
	}
	startTime := time.Now()
	a.cache.Cleanup()

	metrics := WatchlistMetrics{Entries: len(a.config.Watchlist)}
	if metrics.Entries == 0 {
		a.logger.Warn("Watchlist is empty, nothing to do")
		events.OnSuccess(metrics, time.Since(startTime))
		return nil
	}

	report := &models.WatchlistReport{Date: startTime}
	var failures []error
	for _, entry := range a.config.Watchlist {
		summary, top, err := a.runEntry(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.Failed++
			failures = append(failures, fmt.Errorf("%s: %w", entry.Label(), err))
			a.logger.Error("Watchlist entry failed", zap.String("entry", entry.Label()), zap.Error(err))
			continue
		}
		report.Entries = append(report.Entries, models.WatchlistRanking{Label: entry.Label(), Items: top})
		metrics.Videos += summary.Resolved - summary.Missing
		metrics.Missing += summary.Missing
		metrics.EnrichmentFailures += summary.Failed
	}

	duration := time.Since(startTime)
	if metrics.Failed == metrics.Entries {
		return fmt.Errorf("all %d watchlist entries failed: %w", metrics.Entries, errors.Join(failures...))
	}
	if len(failures) > 0 {
		events.OnPartialFailure(errors.Join(failures...), duration)
	}
	if metrics.EnrichmentFailures > 0 {
		events.OnPartialFailure(fmt.Errorf("%d videos have no dislike count", metrics.EnrichmentFailures), duration)
	}
	if a.reports != nil {
		if err := a.reports.SendReport(report); err != nil {
			a.logger.Warn("Failed to send digest", zap.Error(err))
			events.OnPartialFailure(fmt.Errorf("failed to send digest: %w", err), duration)
		} else {
			a.logger.Info("Digest sent", zap.Int("entries", len(report.Entries)))
		}
	}
	events.OnSuccess(metrics, duration)

	a.logger.Info("Watchlist run complete",
		zap.Int("entries", metrics.Entries),
		zap.Int("failed", metrics.Failed),
		zap.Int("videos", metrics.Videos),
		zap.Duration("duration", duration))
	return nil
}

// runEntry runs one entry and returns its summary and top ranked videos.
func (a *WatchlistAgent) runEntry(ctx context.Context, entry config.WatchlistEntry) (*pipeline.RunSummary, []models.RankedItem, error) {
	in, err := watchlistInput(entry)
	if err != nil {
		return nil, nil, err
	}

	updates := a.orchestrator.Run(ctx, in, pipeline.Options{
		Limit: entry.Limit,
		Group: "watchlist:" + entry.Label(),
	})

	var final *pipeline.Update
	for u := range updates {
		if u.Done {
			final = &u
		}
	}
	if final == nil {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("run ended without a result")
	}
	if final.Err != nil {
		return nil, nil, final.Err
	}

	ranked := scoring.Rank(final.Videos, a.config.Ranking.Weights)
	a.mu.Lock()
	a.rankings[entry.Label()] = ranked
	a.mu.Unlock()

	top := ranked[:min(a.config.Ranking.Top, len(ranked))]
	for i, item := range top {
		a.logger.Info("Top video",
			zap.String("entry", entry.Label()),
			zap.Int("rank", i+1),
			zap.String("video_id", item.Video.ID),
			zap.String("title", item.Video.Title),
			zap.Float64("score", item.CompositeScore),
			zap.Stringer("enrichment", item.Video.Enrichment))
	}
	return final.Summary, top, nil
}

// watchlistInput reads the document of json and csv entries from the file
// named by Input; every other kind uses Input as is.
func watchlistInput(entry config.WatchlistEntry) (pipeline.Input, error) {
	in := pipeline.Input{Kind: entry.Kind, Text: entry.Input}
	if entry.Kind == models.KindJSON || entry.Kind == models.KindCSV {
		data, err := os.ReadFile(entry.Input)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("failed to read %s file: %w", entry.Kind, err)
		}
		in.Text = string(data)
	}
	return in, nil
}

// Rankings returns a copy of the latest ranking of every watchlist entry,
// keyed by entry label.
func (a *WatchlistAgent) Rankings() map[string][]models.RankedItem {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string][]models.RankedItem, len(a.rankings))
	for label, items := range a.rankings {
		out[label] = slices.Clone(items)
	}
	return out
}
