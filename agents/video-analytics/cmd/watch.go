package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	videoanalytics "video-analytics/agents/video-analytics"
	"video-analytics/shared/monitoring"
	"video-analytics/shared/scheduler"
)

func watchCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rank the configured watchlist on a schedule",
		Long: `Watch runs every watchlist entry of the config file on the configured cron
schedule and logs the top ranked videos. With --once the rankings of every
entry are also printed as JSON. Health, status and Prometheus
metrics are served on the monitoring port.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			metrics := monitoring.NewMetrics(nil)
			monitor := monitoring.NewMonitor(logger)
			agent := videoanalytics.NewWatchlistAgent(cfg, metrics, logger.Named("agent"))
			s := scheduler.New(cfg, agent, monitor, metrics, logger.Named("scheduler"))

			if once {
				logger.Info("Running once")
				if err := agent.Initialize(cmd.Context()); err != nil {
					return fmt.Errorf("failed to initialize agent: %w", err)
				}
				if err := s.RunOnce(cmd.Context()); err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(agent.Rankings())
			}

			logger.Info("Starting scheduler", zap.Int("watchlist_entries", len(cfg.Watchlist)))
			err = s.Start(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run the watchlist once and exit")
	return cmd
}
