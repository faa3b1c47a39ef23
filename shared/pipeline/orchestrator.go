package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"video-analytics/internal/models"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/scoring"
	"video-analytics/shared/storage"
)

// statsChunkSize is the most IDs the primary API accepts per request.
const statsChunkSize = 50

// Options tune a single run.
type Options struct {
	// Limit caps search results (default 50, at most 200).
	Limit int
	// EmitEvery sets how many enrichment completions trigger an update.
	// Zero picks 1, or total/100 for channel, playlist and search inputs
	// of more than 100 videos.
	EmitEvery int
	// Group keys supersession. Defaults to "kind:text".
	Group string
	// Enrichment overrides the orchestrator's enrichment limits.
	Enrichment *EnrichConfig
}

// Update is one emission of a run. Videos is a snapshot the receiver owns:
// completed videos in completion order, then pending ones in input order.
type Update struct {
	RunID    string
	State    State
	Videos   []models.Video
	Progress float64
	Done     bool
	Err      error
	Summary  *RunSummary
}

// RunSummary is attached to the terminal Complete update.
type RunSummary struct {
	RunID    string
	Kind     models.InputKind
	Resolved int
	Missing  int
	Enriched int
	Cached   int
	Skipped  int
	Failed   int
	Failures []*EnrichmentFailure
	Duration time.Duration
}

func (s RunSummary) String() string {
	return fmt.Sprintf("%s run: %d resolved, %d missing, %d enriched, %d cached, %d failed in %s",
		s.Kind, s.Resolved, s.Missing, s.Enriched, s.Cached, s.Failed, s.Duration.Round(time.Millisecond))
}

// Sources bundles the external collaborators. Lister, Searcher, Directory
// and Secondary may be nil; inputs needing a missing one fail to resolve,
// and without Secondary videos stay provisional.
type Sources struct {
	Lister    Lister
	Searcher  Searcher
	Directory Directory
	Stats     StatsSource
	Secondary SecondarySource
}

type OrchestratorConfig struct {
	Enrichment EnrichConfig
	Scoring    scoring.Params
	Cache      *storage.VoteCache
	Metrics    *monitoring.Metrics
	Monitor    *monitoring.Monitor
	Logger     *zap.Logger
}

// Orchestrator sequences resolution, stats, enrichment and scoring for each
// run and streams the results.
type Orchestrator struct {
	sources  Sources
	resolver *Resolver
	cfg      OrchestratorConfig
	logger   *zap.Logger

	mu     sync.Mutex
	active map[string]*run
}

func NewOrchestrator(sources Sources, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cfg.Enrichment = cfg.Enrichment.WithDefaults()
	cfg.Scoring = cfg.Scoring.WithDefaults()

	return &Orchestrator{
		sources:  sources,
		resolver: NewResolver(sources.Lister, sources.Searcher, sources.Directory, cfg.Logger),
		cfg:      cfg,
		logger:   cfg.Logger,
		active:   make(map[string]*run),
	}
}

// run is the per-run state. videos, completed and done are only touched by
// the run goroutine, or from inside enrichment callbacks which the Enricher
// serializes.
type run struct {
	id     string
	group  string
	kind   models.InputKind
	state  State
	cancel context.CancelCauseFunc
	out    chan Update
	logger *zap.Logger

	videos    []*models.Video
	byID      map[string]*models.Video
	completed []string
	done      map[string]bool
	progress  float64
}

// Run starts a run and returns its update stream. The channel is closed after
// the terminal update (Complete or Aborted). A run superseded by a newer run
// with the same group, or whose ctx is cancelled, closes its channel without
// sending anything further. Suppression is best-effort: an update already
// selected for delivery when the cancel lands can still arrive, so consumers
// that share a group should drop updates whose RunID differs from Latest.
// Callers must drain the channel or cancel ctx.
func (o *Orchestrator) Run(ctx context.Context, in Input, opts Options) <-chan Update {
	group := opts.Group
	if group == "" {
		group = in.Kind.String() + ":" + strings.TrimSpace(in.Text)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	r := &run{
		id:     uuid.NewString(),
		group:  group,
		kind:   in.Kind,
		state:  StateIdle,
		cancel: cancel,
		out:    make(chan Update),
		byID:   make(map[string]*models.Video),
		done:   make(map[string]bool),
	}
	r.logger = o.logger.With(zap.String("run_id", r.id), zap.String("kind", in.Kind.String()))

	o.mu.Lock()
	if prev, ok := o.active[group]; ok {
		prev.cancel(ErrSuperseded)
		r.logger.Info("Superseding previous run", zap.String("previous_run_id", prev.id))
	}
	o.active[group] = r
	o.mu.Unlock()

	go o.execute(runCtx, r, in, opts)
	return r.out
}

// Latest returns the ID of the newest in-flight run for group.
func (o *Orchestrator) Latest(group string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.active[group]
	if !ok {
		return "", false
	}
	return r.id, true
}

func (o *Orchestrator) release(r *run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[r.group] == r {
		delete(o.active, r.group)
	}
}

func (o *Orchestrator) execute(ctx context.Context, r *run, in Input, opts Options) {
	start := time.Now()
	summary := &RunSummary{RunID: r.id, Kind: in.Kind}

	defer close(r.out)
	defer o.release(r)
	defer r.cancel(nil)

	r.logger.Info("Run started", zap.String("group", r.group))

	r.transition(StateResolving)
	ids, err := o.resolver.Resolve(ctx, in, opts.Limit, func() { r.transition(StatePaginating) })
	if err != nil {
		o.abort(ctx, r, err, start)
		return
	}
	ids = Dedupe(ids)
	summary.Resolved = len(ids)
	r.logger.Info("Resolved input", zap.Int("videos", len(ids)))

	r.transition(StateFetchingStats)
	if err := o.fetchStats(ctx, r, ids, summary); err != nil {
		o.abort(ctx, r, err, start)
		return
	}
	o.cfg.Metrics.AddResolved(summary.Resolved, summary.Missing)

	if len(r.videos) > 0 && o.sources.Secondary != nil {
		r.transition(StateEnriching)
		es, err := o.enrich(ctx, r, opts)
		if err != nil {
			o.abort(ctx, r, err, start)
			return
		}
		summary.Enriched = es.Enriched
		summary.Cached = es.Cached
		summary.Skipped = es.Skipped
		summary.Failed = es.Failed
		summary.Failures = es.Failures
	}

	r.transition(StateComplete)
	summary.Duration = time.Since(start)

	o.cfg.Metrics.ObserveRun(in.Kind.String(), StateComplete.String(), summary.Duration)
	if o.cfg.Monitor != nil {
		o.cfg.Monitor.RecordSuccess(summary.String(), summary.Duration)
		if summary.Failed > 0 {
			o.cfg.Monitor.RecordPartialFailure(
				fmt.Errorf("%d of %d videos have no dislike count", summary.Failed, len(r.videos)),
				summary.Duration)
		}
	}
	r.logger.Info("Run complete",
		zap.Int("videos", len(r.videos)),
		zap.Int("missing", summary.Missing),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))

	r.send(ctx, Update{
		State:    StateComplete,
		Videos:   r.snapshot(),
		Progress: 100,
		Done:     true,
		Summary:  summary,
	})
}

// fetchStats loads primary stats in chunks, keeping input order and dropping
// IDs the API did not return.
func (o *Orchestrator) fetchStats(ctx context.Context, r *run, ids []string, summary *RunSummary) error {
	for start := 0; start < len(ids); start += statsChunkSize {
		chunk := ids[start:min(start+statsChunkSize, len(ids))]

		fetched, err := o.sources.Stats.Stats(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &UpstreamError{Op: "fetch stats for", Target: fmt.Sprintf("%d video(s)", len(chunk)), Err: err}
		}

		found := make(map[string]models.Video, len(fetched))
		for _, v := range fetched {
			found[v.ID] = v
		}
		for _, id := range chunk {
			v, ok := found[id]
			if !ok {
				summary.Missing++
				r.logger.Debug("Video not returned by stats source", zap.String("video_id", id))
				continue
			}
			video := v.Clone()
			video.Enrichment = models.EnrichmentPending
			scoring.Refresh(&video, o.cfg.Scoring)
			r.videos = append(r.videos, &video)
			r.byID[id] = &video
		}

		fetchedSoFar := start + len(chunk)
		r.progress = float64(fetchedSoFar) / float64(len(ids)) * 50
		if !r.send(ctx, Update{State: StateFetchingStats, Videos: r.snapshot(), Progress: r.progress}) {
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) enrich(ctx context.Context, r *run, opts Options) (EnrichSummary, error) {
	cfg := o.cfg.Enrichment
	if opts.Enrichment != nil {
		cfg = opts.Enrichment.WithDefaults()
	}
	enricher := NewEnricher(o.sources.Secondary, cfg,
		WithVoteCache(o.cfg.Cache),
		WithScoringParams(o.cfg.Scoring),
		WithMetrics(o.cfg.Metrics),
		WithLogger(r.logger))

	total := len(r.videos)
	for _, v := range r.videos {
		if v.Stats.Dislikes != nil {
			r.markDone(v.ID)
		}
	}

	emitEvery := opts.EmitEvery
	if emitEvery <= 0 {
		emitEvery = autoEmitEvery(r.kind, total)
	}

	return enricher.Enrich(ctx, r.videos, func(out Outcome) {
		r.markDone(out.Video.ID)
		finished := len(r.completed)
		if finished == total {
			return // reported by the terminal update
		}
		if finished%emitEvery != 0 {
			return
		}
		r.progress = 50 + float64(finished)/float64(total)*50
		r.send(ctx, Update{State: StateEnriching, Videos: r.snapshot(), Progress: r.progress})
	})
}

// autoEmitEvery reports every completion for single and bulk inputs. Large
// collections report about a hundred times per run instead.
func autoEmitEvery(kind models.InputKind, total int) int {
	if !kind.Collection() {
		return 1
	}
	return max(1, total/100)
}

// abort reports a fatal error once. Superseded and cancelled runs report
// nothing.
func (o *Orchestrator) abort(ctx context.Context, r *run, err error, start time.Time) {
	duration := time.Since(start)
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		state := "cancelled"
		if errors.Is(cause, ErrSuperseded) {
			state = "superseded"
		}
		o.cfg.Metrics.ObserveRun(r.kind.String(), state, duration)
		r.logger.Info("Run stopped", zap.String("reason", state), zap.Error(cause))
		return
	}

	r.transition(StateAborted)
	o.cfg.Metrics.ObserveRun(r.kind.String(), StateAborted.String(), duration)
	if o.cfg.Monitor != nil {
		o.cfg.Monitor.RecordCriticalFailure(err, duration)
	}
	r.logger.Error("Run aborted", zap.Error(err))

	r.send(ctx, Update{State: StateAborted, Progress: r.progress, Done: true, Err: err})
}

func (r *run) transition(to State) {
	if !CanTransition(r.state, to) {
		r.logger.DPanic("Invalid run state transition", zap.Stringer("from", r.state), zap.Stringer("to", to))
	}
	r.logger.Debug("Run state", zap.Stringer("from", r.state), zap.Stringer("to", to))
	r.state = to
}

func (r *run) markDone(videoID string) {
	if r.done[videoID] {
		return
	}
	r.done[videoID] = true
	r.completed = append(r.completed, videoID)
}

func (r *run) snapshot() []models.Video {
	videos := make([]models.Video, 0, len(r.videos))
	for _, id := range r.completed {
		videos = append(videos, r.byID[id].Clone())
	}
	for _, v := range r.videos {
		if !r.done[v.ID] {
			videos = append(videos, v.Clone())
		}
	}
	return videos
}

// send delivers u unless the run was cancelled or superseded. A receiver
// blocked on r.out may still win the select against a concurrent cancel.
func (r *run) send(ctx context.Context, u Update) bool {
	if ctx.Err() != nil {
		return false
	}
	u.RunID = r.id
	select {
	case r.out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
