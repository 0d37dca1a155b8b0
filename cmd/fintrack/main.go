package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	origin := uuid.NewString()
	be := cli.InitBackend(context.Background(), logger, cfg, origin)

	hub := ledger.NewHub()
	opts := []ledger.LiveOption{
		ledger.WithOrigin(origin),
		ledger.WithRetryInterval(cfg.RetryInterval),
	}
	if be.Broker != nil {
		opts = append(opts, ledger.WithNotifier(be.Broker))
	}
	live := ledger.NewLive(be.Repository, hub, opts...)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		SessionTTL:         cfg.SessionTTL,
		SessionMax:         cfg.SessionMax,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, live, be.Exporter)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Changes written by other processes reach local sessions through the hub.
	if be.Broker != nil {
		go func() {
			if err := be.Broker.Consume(ctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger change consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"origin", origin,
		"amqp_enabled", be.Broker != nil,
		"sheets_enabled", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
