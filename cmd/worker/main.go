package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/turyasin/Proposal-App-Live/internal/app"
	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/funnel"
	"github.com/turyasin/Proposal-App-Live/internal/observability"
	"github.com/turyasin/Proposal-App-Live/internal/platform/cache"
	"github.com/turyasin/Proposal-App-Live/internal/platform/db"
	"github.com/turyasin/Proposal-App-Live/internal/proposals"
	"github.com/turyasin/Proposal-App-Live/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, archive cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	companyRepo := companies.NewRepository(pool)
	companyService := companies.NewService(companyRepo)

	proposalRepo := proposals.NewRepository(pool)
	proposalCache := proposals.NewCache(redisClient, cfg.CacheTTL)
	proposalService := proposals.NewService(proposalRepo, companyRepo, proposalCache)

	snapshotRepo := funnel.NewSnapshotRepository(pool)
	funnelService := funnel.NewService(proposalService, companyService, snapshotRepo)

	mailer := jobs.Mailer{
		Addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From:   cfg.SMTPFrom,
		Logger: logger,
	}
	if cfg.SMTPHost == "" {
		mailer.Addr = ""
	}

	snapshotTask, err := jobs.NewFunnelSnapshotTask(time.Time{})
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer, metrics, logger)},
			{Type: jobs.TaskTypeFunnelSnapshot, Handler: jobs.NewFunnelSnapshotHandler(funnelService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.FunnelSnapshotCron, Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
