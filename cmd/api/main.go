package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/martinsandoval/imagevault-backend/api/routes"
	"github.com/martinsandoval/imagevault-backend/internal/ingest"
	"github.com/martinsandoval/imagevault-backend/internal/ledger"
	"github.com/martinsandoval/imagevault-backend/internal/stats"
	"github.com/martinsandoval/imagevault-backend/internal/validator"
	"github.com/martinsandoval/imagevault-backend/pkg/config"
	"github.com/martinsandoval/imagevault-backend/pkg/db"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/metrics"
	"github.com/martinsandoval/imagevault-backend/pkg/migrate"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
	"github.com/martinsandoval/imagevault-backend/pkg/redis"
	"github.com/martinsandoval/imagevault-backend/pkg/storage/fs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	requireResource(logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	queueClient, err := queue.NewClient(cfg.Redis, cfg.Queue)
	requireResource(logg, "queue client", err)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing queue client", err)
		}
	}()

	store, err := fs.NewStore(cfg.Storage.MediaDir, cfg.Media.ThumbJPEGQuality)
	requireResource(logg, "content store", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	repo := ledger.NewRepository(dbClient.DB())

	orchestrator, err := ingest.NewOrchestrator(queueClient, logg)
	requireResource(logg, "orchestrator", err)

	uploadValidator := validator.New(cfg.Media.MaxUploadBytes(), cfg.Media.MaxPixels)

	ingestService, err := ingest.NewService(repo, store, uploadValidator, orchestrator, logg, pipelineMetrics)
	requireResource(logg, "ingest service", err)

	statsService, err := stats.NewService(repo)
	requireResource(logg, "stats service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ingestService, statsService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
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
