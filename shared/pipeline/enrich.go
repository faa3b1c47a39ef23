package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"video-analytics/internal/models"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/retry"
	"video-analytics/shared/scoring"
	"video-analytics/shared/storage"
)

// EnrichConfig bounds the traffic sent to the secondary vote endpoint.
type EnrichConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay"`
	// BatchSize is both the concurrency inside a batch and the number of
	// requests allowed per BatchInterval.
	BatchSize      int           `yaml:"batch_size"`
	BatchInterval  time.Duration `yaml:"batch_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func DefaultEnrichConfig() EnrichConfig {
	return EnrichConfig{
		MaxAttempts:       3,
		RetryDelay:        time.Second,
		BackoffMultiplier: 2,
		MaxRetryDelay:     8 * time.Second,
		BatchSize:         5,
		BatchInterval:     time.Second,
		RequestTimeout:    10 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultEnrichConfig. A negative
// RetryDelay or BatchInterval turns that delay off.
func (c EnrichConfig) WithDefaults() EnrichConfig {
	d := DefaultEnrichConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	switch {
	case c.RetryDelay == 0:
		c.RetryDelay = d.RetryDelay
	case c.RetryDelay < 0:
		c.RetryDelay = 0
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = d.MaxRetryDelay
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	switch {
	case c.BatchInterval == 0:
		c.BatchInterval = d.BatchInterval
	case c.BatchInterval < 0:
		c.BatchInterval = 0
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

func (c EnrichConfig) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.RetryDelay,
		MaxDelay:     c.MaxRetryDelay,
		Multiplier:   c.BackoffMultiplier,
	}
}

// Outcome describes one finished enrichment. Video is a snapshot.
type Outcome struct {
	Video    models.Video
	Status   models.EnrichmentStatus
	Attempts int
	Err      error
}

// EnrichSummary counts what happened to the items handed to Enrich.
// Items left untouched by cancellation are in none of the counters.
type EnrichSummary struct {
	Enriched int
	Cached   int
	Skipped  int
	Failed   int
	Failures []*EnrichmentFailure
}

// Enricher fills in dislike counts from the secondary source. One Enricher
// serves one run: its limiter is the only throttle towards the endpoint.
type Enricher struct {
	source  SecondarySource
	cfg     EnrichConfig
	limiter *rate.Limiter
	cache   *storage.VoteCache
	params  scoring.Params
	metrics *monitoring.Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

type EnricherOption func(*Enricher)

func WithVoteCache(cache *storage.VoteCache) EnricherOption {
	return func(e *Enricher) { e.cache = cache }
}

func WithScoringParams(params scoring.Params) EnricherOption {
	return func(e *Enricher) { e.params = params.WithDefaults() }
}

func WithMetrics(metrics *monitoring.Metrics) EnricherOption {
	return func(e *Enricher) { e.metrics = metrics }
}

func WithLogger(logger *zap.Logger) EnricherOption {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewEnricher(source SecondarySource, cfg EnrichConfig, opts ...EnricherOption) *Enricher {
	cfg = cfg.WithDefaults()

	limit := rate.Inf
	if cfg.BatchInterval > 0 {
		limit = rate.Every(cfg.BatchInterval / time.Duration(cfg.BatchSize))
	}

	e := &Enricher{
		source:  source,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.BatchSize),
		params:  scoring.DefaultParams(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich fetches votes for every video lacking dislikes and updates it in
// place. onDone is called once per finished item, never concurrently, with
// the video already updated. Per-item failures are reported in the summary;
// the only error returned is the context's when the run is cancelled.
func (e *Enricher) Enrich(ctx context.Context, videos []*models.Video, onDone func(Outcome)) (EnrichSummary, error) {
	var summary EnrichSummary
	if onDone == nil {
		onDone = func(Outcome) {}
	}

	pending := make([]*models.Video, 0, len(videos))
	for _, v := range videos {
		if v.Stats.Dislikes != nil {
			summary.Skipped++
			continue
		}
		pending = append(pending, v)
	}

	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		if start > 0 && e.cfg.BatchInterval > 0 {
			timer := time.NewTimer(e.cfg.BatchInterval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return summary, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := min(start+e.cfg.BatchSize, len(pending))
		var g errgroup.Group
		g.SetLimit(e.cfg.BatchSize)
		for _, v := range pending[start:end] {
			g.Go(func() error {
				e.enrichOne(ctx, v, &summary, onDone)
				return nil
			})
		}
		_ = g.Wait()
	}

	return summary, ctx.Err()
}

func (e *Enricher) enrichOne(ctx context.Context, v *models.Video, summary *EnrichSummary, onDone func(Outcome)) {
	logger := e.logger.With(zap.String("video_id", v.ID))

	if votes, ok := e.cache.Get(v.ID); ok {
		e.finish(v, votes, models.EnrichmentCached, 0, nil, summary, onDone)
		return
	}

	cfg := e.cfg.retryConfig()
	cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		logger.Debug("Retrying vote lookup",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	votes, attempts, err := retry.Do(ctx, cfg, func(ctx context.Context, _ int) (models.Votes, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return models.Votes{}, err
		}
		e.metrics.IncEnrichmentAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()

		votes, err := e.source.Votes(attemptCtx, v.ID)
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return models.Votes{}, fmt.Errorf("vote lookup timed out after %s: %w", e.cfg.RequestTimeout, err)
		}
		return votes, err
	})

	if err != nil {
		if ctx.Err() != nil {
			// Cancelled runs leave the item pending rather than failed.
			return
		}
		failure := &EnrichmentFailure{VideoID: v.ID, Attempts: attempts, Err: err}
		logger.Warn("Enrichment failed", zap.Int("attempt", attempts), zap.Error(err))
		e.finish(v, models.Votes{}, models.EnrichmentFailed, attempts, failure, summary, onDone)
		return
	}

	e.cache.Put(v.ID, votes)
	e.finish(v, votes, models.EnrichmentEnriched, attempts, nil, summary, onDone)
}

func (e *Enricher) finish(v *models.Video, votes models.Votes, status models.EnrichmentStatus, attempts int, failure *EnrichmentFailure, summary *EnrichSummary, onDone func(Outcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	switch status {
	case models.EnrichmentFailed:
		summary.Failed++
		summary.Failures = append(summary.Failures, failure)
		err = failure
	case models.EnrichmentCached:
		summary.Cached++
		applyVotes(v, votes)
	default:
		summary.Enriched++
		applyVotes(v, votes)
	}
	v.Enrichment = status
	scoring.Refresh(v, e.params)
	e.metrics.IncEnrichmentResult(status.String())

	onDone(Outcome{Video: v.Clone(), Status: status, Attempts: attempts, Err: err})
}

// applyVotes treats the secondary source as authoritative for likes and
// views whenever it reports them.
func applyVotes(v *models.Video, votes models.Votes) {
	dislikes := votes.Dislikes
	v.Stats.Dislikes = &dislikes
	if votes.Likes > 0 {
		v.Stats.Likes = votes.Likes
	}
	if votes.Views > 0 {
		v.Stats.Views = votes.Views
	}
}
