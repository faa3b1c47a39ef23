package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"video-analytics/agents/video-analytics/youtube"
	"video-analytics/shared/ai"
	"video-analytics/shared/extract"
)

func commentsCommand() *cobra.Command {
	var (
		input string
		count int
		lang  string
	)

	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Summarize the top comments of a video with Gemini",
		RunE: func(cmd *cobra.Command, _ []string) error {
			videoID, ok := extract.VideoID(input)
			if !ok {
				return fmt.Errorf("no video ID found in %q", input)
			}

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if err := cfg.RequireAI(); err != nil {
				return err
			}
			if count <= 0 {
				count = cfg.AI.Comments
			}

			ctx := cmd.Context()
			client, err := youtube.NewClient(ctx, &cfg.YouTube, logger.Named("youtube"))
			if err != nil {
				return fmt.Errorf("failed to create YouTube client: %w", err)
			}
			analyzer, err := ai.NewAnalyzer(ctx, &cfg.AI, logger.Named("ai"))
			if err != nil {
				return err
			}

			videos, err := client.Stats(ctx, []string{videoID})
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				return fmt.Errorf("video %s not found", videoID)
			}

			comments, err := client.Comments(ctx, videoID, count)
			if err != nil {
				return err
			}
			logger.Info("Analyzing comments", zap.String("video_id", videoID), zap.Int("comments", len(comments)))

			analysis, err := analyzer.AnalyzeComments(ctx, &videos[0], comments, lang)
			if err != nil {
				return err
			}
			fmt.Printf("Average sentiment: %s\n\n", ai.SentimentLabel(analysis.Sentiment))
			fmt.Println(analysis.Summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "video URL or ID")
	cmd.Flags().IntVarP(&count, "count", "c", 0, "number of comments to analyze (default from config)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language of the summary (default from config)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
