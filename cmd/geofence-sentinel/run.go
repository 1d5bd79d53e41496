package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nholik/geofence-sentinel/internal/config"
	"github.com/nholik/geofence-sentinel/internal/coordinator"
	"github.com/nholik/geofence-sentinel/internal/logging"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the geofence daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("zones") {
				cfg.ZonesFile = zonesFile
			}

			logger := logging.NewWithLevel(cfg.LogLevel)
			logger.Info().Msg("geofence-sentinel starting")

			c, err := coordinator.New(logger, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("startup failed")
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.Run(ctx)
		},
	}
}
