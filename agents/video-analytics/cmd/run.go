package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"video-analytics/agents/video-analytics/votes"
	"video-analytics/agents/video-analytics/youtube"
	"video-analytics/internal/models"
	"video-analytics/shared/config"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/pipeline"
	"video-analytics/shared/scoring"
	"video-analytics/shared/storage"
)

type runFlags struct {
	kind     string
	input    string
	file     string
	limit    int
	rank     bool
	sortKey  string
	progress bool
}

func runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze a video, channel, playlist, search or bulk list once",
		Long: `Run resolves the input to video IDs, fetches their statistics, fills in
dislike counts and prints the resulting videos as JSON.

Examples:
  # A single video
  video-analytics run --kind video --input https://youtu.be/dQw4w9WgXcQ

  # The 120 best matches of a search, ranked with the configured weights
  video-analytics run --kind search --input "golang tutorial" --limit 120 --rank

  # A CSV list of links, newest first
  video-analytics run --kind csv --file videos.csv --sort published_at
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.kind, "kind", "k", "", "input kind: video, channel, playlist, search, json, csv or links")
	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "URL, ID, handle, query or list of links")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "read the input from a file instead")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 0, "maximum search results (default 50, at most 200)")
	cmd.Flags().BoolVar(&flags.rank, "rank", false, "rank the results with the configured weights")
	cmd.Flags().StringVar(&flags.sortKey, "sort", "", "sort by published_at or a metric name")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "print every intermediate update")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runOnce(ctx context.Context, flags runFlags) error {
	kind, err := models.ParseInputKind(flags.kind)
	if err != nil {
		return err
	}
	text := flags.input
	if flags.file != "" {
		data, err := os.ReadFile(flags.file)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text = string(data)
	}
	if text == "" {
		return fmt.Errorf("either --input or --file is required")
	}

	var sortKey scoring.SortKey
	if flags.sortKey != "" {
		if sortKey, err = scoring.ParseSortKey(flags.sortKey); err != nil {
			return err
		}
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	orchestrator, err := newOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	limit := flags.limit
	if limit == 0 {
		limit = cfg.YouTube.SearchLimit
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	var final *pipeline.Update
	for u := range orchestrator.Run(ctx, pipeline.Input{Kind: kind, Text: text}, pipeline.Options{Limit: limit}) {
		logger.Info("Progress",
			zap.Stringer("state", u.State),
			zap.Float64("progress", u.Progress),
			zap.Int("videos", len(u.Videos)))
		if flags.progress && !u.Done {
			if err := enc.Encode(u.Videos); err != nil {
				return fmt.Errorf("failed to write update: %w", err)
			}
		}
		if u.Done {
			final = &u
		}
	}

	if final == nil {
		return ctx.Err()
	}
	if final.Err != nil {
		return final.Err
	}
	logger.Info("Run finished", zap.Stringer("summary", final.Summary))

	switch {
	case flags.rank:
		return enc.Encode(scoring.Rank(final.Videos, cfg.Ranking.Weights))
	case sortKey != "":
		scoring.SortBy(final.Videos, sortKey)
	}
	return enc.Encode(final.Videos)
}

func newOrchestrator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Orchestrator, error) {
	client, err := youtube.NewClient(ctx, &cfg.YouTube, logger.Named("youtube"))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}

	sources := pipeline.Sources{
		Lister:    client,
		Searcher:  client,
		Directory: client,
		Stats:     client,
		Secondary: votes.NewClient(&cfg.Votes, logger.Named("votes")),
	}
	return pipeline.NewOrchestrator(sources, pipeline.OrchestratorConfig{
		Enrichment: cfg.Enrichment,
		Scoring:    cfg.Scoring,
		Cache:      storage.NewVoteCache(cfg.Votes.CacheTTL),
		Metrics:    monitoring.NewMetrics(nil),
		Logger:     logger.Named("pipeline"),
	}), nil
}
