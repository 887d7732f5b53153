package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/insurance-market/dashboard/internal/app"
	"github.com/insurance-market/dashboard/internal/dashboard"
	jobmetrics "github.com/insurance-market/dashboard/internal/jobs"
	"github.com/insurance-market/dashboard/internal/marketapi"
	"github.com/insurance-market/dashboard/internal/platform/cache"
	"github.com/insurance-market/dashboard/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	retry := marketapi.DefaultRetryConfig()
	retry.MaxRetries = cfg.MarketAPIMaxRetries
	apiClient := marketapi.New(cfg.MarketAPIURL,
		marketapi.WithTimeout(cfg.MarketAPITimeout),
		marketapi.WithRetry(retry),
		marketapi.WithRateLimit(cfg.MarketAPIRate, int(cfg.MarketAPIRate)),
		marketapi.WithLogger(logger.With(slog.String("component", "marketapi"))),
	)
	service := dashboard.NewService(apiClient, dashboard.NewCache(redisClient, cfg.CacheTTL), dashboard.Config{
		DataTTL:    cfg.CacheTTL,
		FiltersTTL: cfg.FiltersTTL,
	}, logger.With(slog.String("component", "dashboard")))

	metrics := jobmetrics.NewMetrics(nil)
	warmupJob := jobs.NewWarmupJob(service, logger, metrics)
	invalidateJob := jobs.NewInvalidateJob(service, logger, metrics)

	warmupTask, err := jobs.NewWarmupTask(jobs.WarmupPayload{Years: 1})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskDashboardInvalidate, Handler: invalidateJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
