package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/agrotrace/agrotrace/internal/app"
	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/upstream"
	"github.com/agrotrace/agrotrace/jobs"
	"github.com/agrotrace/agrotrace/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		upstream.WithDefaultTenant(cfg.UpstreamTenant),
		upstream.WithBypassTunnel(cfg.UpstreamBypassTunnel),
	)
	lookupService := lookup.NewService(upstreamClient, lookup.NewCache(redisClient, cfg.LookupTTL))
	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.ReportSettleDelay)

	var boardAPI dashboard.API = upstreamClient
	trendBatch := jobs.NewTrendBatchJob(boardAPI, lookupService, pdfClient, redisClient, logger, cfg.ReportOutputDir)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:  asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:     logger,
		TrendBatch: trendBatch,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
