package main

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/insurance-market/dashboard/internal/app"
	"github.com/insurance-market/dashboard/internal/dashboard"
	"github.com/insurance-market/dashboard/internal/dashboard/export"
	dashboardhttp "github.com/insurance-market/dashboard/internal/dashboard/http"
	"github.com/insurance-market/dashboard/internal/dashboard/svg"
	"github.com/insurance-market/dashboard/internal/market/aggregate"
	"github.com/insurance-market/dashboard/internal/marketapi"
	"github.com/insurance-market/dashboard/internal/observability"
	"github.com/insurance-market/dashboard/internal/platform/cache"
	"github.com/insurance-market/dashboard/internal/view"
	"github.com/insurance-market/dashboard/jobs"
)

type stackedRenderer struct{}

func (stackedRenderer) StackedBars(width, height int, chart aggregate.BarChart, opts svg.StackOpts) (template.HTML, error) {
	return svg.StackedBars(width, height, chart, opts)
}

type donutRenderer struct{}

func (donutRenderer) Donut(size int, slices []aggregate.Slice, opts svg.DonutOpts) (template.HTML, error) {
	return svg.Donut(size, slices, opts)
}

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
	metrics := observability.NewMetrics()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	retry := marketapi.DefaultRetryConfig()
	retry.MaxRetries = cfg.MarketAPIMaxRetries
	apiClient := marketapi.New(cfg.MarketAPIURL,
		marketapi.WithTimeout(cfg.MarketAPITimeout),
		marketapi.WithRetry(retry),
		marketapi.WithRateLimit(cfg.MarketAPIRate, int(cfg.MarketAPIRate)),
		marketapi.WithMetrics(metrics),
		marketapi.WithLogger(logger.With(slog.String("component", "marketapi"))),
	)

	var dashboardCache *dashboard.Cache
	if redisClient != nil {
		dashboardCache = dashboard.NewCache(redisClient, cfg.CacheTTL)
		if err := dashboardCache.ListenForInvalidation(ctx, dashboard.BumpChannel); err != nil {
			logger.Warn("subscribe cache invalidation", slog.Any("error", err))
		}
	}
	service := dashboard.NewService(apiClient, dashboardCache, dashboard.Config{
		DataTTL:    cfg.CacheTTL,
		FiltersTTL: cfg.FiltersTTL,
	}, logger.With(slog.String("component", "dashboard"))).WithObserver(metrics)

	var pdf dashboardhttp.PDFService
	if cfg.GotenbergURL != "" {
		pdf = &export.PDFExporter{Endpoint: cfg.GotenbergURL, Client: &http.Client{Timeout: 30 * time.Second}}
	}
	dashboardHandler := dashboardhttp.NewHandler(logger, service, apiClient, templates, stackedRenderer{}, donutRenderer{}, pdf)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("create job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger).WithEnqueuer(jobClient)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("market_api", cfg.MarketAPIURL))
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
