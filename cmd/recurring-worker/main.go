package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cli"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	origin := uuid.NewString()
	be := cli.InitBackend(context.Background(), logger, cfg, origin)

	// Publishing through the notifier lets open sessions in the API
	// processes pick up the propagated rows.
	opts := []ledger.LiveOption{ledger.WithOrigin(origin)}
	if be.Broker != nil {
		opts = append(opts, ledger.WithNotifier(be.Broker))
	} else {
		logger.Info("AMQP disabled - API sessions see propagated rows on their next reload")
	}
	live := ledger.NewLive(be.Repository, ledger.NewHub(), opts...)

	rollover := worker.NewRolloverWorker(be.Repository, live, cfg.RolloverInterval)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting recurring-worker",
		"interval", cfg.RolloverInterval,
		"backend", cfg.DataBackend)
	if err := rollover.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Rollover worker stopped", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
