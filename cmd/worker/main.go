package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/martinsandoval/imagevault-backend/internal/jobs"
	"github.com/martinsandoval/imagevault-backend/internal/ledger"
	"github.com/martinsandoval/imagevault-backend/pkg/caption"
	"github.com/martinsandoval/imagevault-backend/pkg/config"
	"github.com/martinsandoval/imagevault-backend/pkg/db"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/metrics"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
	"github.com/martinsandoval/imagevault-backend/pkg/storage/fs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	store, err := fs.NewStore(cfg.Storage.MediaDir, cfg.Media.ThumbJPEGQuality)
	requireResource(logg, "content store", err)

	captioner, err := caption.NewHTTPCaptioner(cfg.Caption)
	requireResource(logg, "captioner", err)

	if cfg.Caption.WarmupOnBoot {
		if err := captioner.Warmup(context.Background()); err != nil {
			// the first caption job pays the cold start instead
			logg.Warn(context.Background(), "caption endpoint warmup failed")
		}
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	repo := ledger.NewRepository(dbClient.DB())

	thumbSizes := map[string]int{
		"small":  cfg.Media.ThumbSmallSize,
		"medium": cfg.Media.ThumbMediumSize,
	}
	handlers, err := jobs.NewHandlers(repo, store, captioner, thumbSizes, logg, pipelineMetrics)
	requireResource(logg, "job handlers", err)

	server := asynq.NewServer(queue.RedisOpt(cfg.Redis), asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues:      map[string]int{cfg.Queue.Name: 1},
	})

	mux := asynq.NewServeMux()
	handlers.Register(mux)

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":         cfg.App.Env,
		"queue":       cfg.Queue.Name,
		"concurrency": cfg.Queue.Concurrency,
	})
	logg.Info(ctx, "starting worker")

	if err := server.Run(mux); err != nil {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	ctx := logg.WithField(context.Background(), "resource", resource)
	logg.Error(ctx, "failed to bootstrap resource", err)
	os.Exit(1)
}
