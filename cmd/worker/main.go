package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/mccmmj/cafe-web-sub004/internal/app"
	"github.com/mccmmj/cafe-web-sub004/internal/cogs"
	"github.com/mccmmj/cafe-web-sub004/internal/platform/cache"
	"github.com/mccmmj/cafe-web-sub004/internal/platform/db"
	"github.com/mccmmj/cafe-web-sub004/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// The worker writes warmed reports through the cache, so Redis is a
	// hard dependency here (asynq needs it regardless).
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

	reportCache := cogs.NewCache(redisClient, cfg.ReportCacheTTL)
	cogsRepo := cogs.NewRepository(dbpool)
	cogsService := cogs.NewService(cogsRepo, reportCache, logger)

	dailyTask, err := jobs.NewCOGSSnapshotDailyTask()
	if err != nil {
		logger.Error("build daily task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCOGSSnapshot, Handler: jobs.NewCOGSSnapshotHandler(cogsService, logger)},
			{Type: jobs.TaskCOGSSnapshotDaily, Handler: jobs.NewCOGSSnapshotDailyHandler(cogsService, logger, nil)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: dailyTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
