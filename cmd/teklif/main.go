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
	companyHandler := companies.NewHandler(logger, companyService)

	proposalRepo := proposals.NewRepository(pool)
	proposalCache := proposals.NewCache(redisClient, cfg.CacheTTL)
	proposalService := proposals.NewService(proposalRepo, companyRepo, proposalCache)

	mailQueue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	proposalHandler := proposals.NewHandler(logger, proposalService, mailQueue)

	snapshotRepo := funnel.NewSnapshotRepository(pool)
	funnelService := funnel.NewService(proposalService, companyService, snapshotRepo)
	funnelHandler := funnel.NewHandler(logger, funnelService, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ProposalHandler: proposalHandler,
		CompanyHandler:  companyHandler,
		FunnelHandler:   funnelHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
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
