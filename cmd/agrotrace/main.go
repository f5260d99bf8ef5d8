package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/agrotrace/agrotrace/internal/app"
	"github.com/agrotrace/agrotrace/internal/auth"
	"github.com/agrotrace/agrotrace/internal/dashboard"
	dashhttp "github.com/agrotrace/agrotrace/internal/dashboard/http"
	"github.com/agrotrace/agrotrace/internal/lookup"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
	"github.com/agrotrace/agrotrace/jobs"
	"github.com/agrotrace/agrotrace/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "agrotrace_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	upstreamClient := upstream.NewClient(cfg.UpstreamBaseURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		upstream.WithDefaultTenant(cfg.UpstreamTenant),
		upstream.WithBypassTunnel(cfg.UpstreamBypassTunnel),
	)

	lookupService := lookup.NewService(upstreamClient, lookup.NewCache(redisClient, cfg.LookupTTL))
	boards := dashboard.NewService(logger, upstreamClient, lookupService, dashboard.ServiceConfig{
		DebounceWindow: cfg.DebounceWindow,
		FetchTimeout:   cfg.UpstreamTimeout,
		BoardIdleTTL:   cfg.BoardIdleTTL,
	})
	go boards.StartEvictor(ctx, time.Minute)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.ReportSettleDelay)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authHandler := auth.NewHandler(logger, upstreamClient, sessionManager, csrfManager, boards.DropBoard)
	dashboardHandler := dashhttp.NewHandler(logger, boards, pdfClient, jobClient)
	jobHandler := jobs.NewHandler(inspector, redisClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
