package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinsandoval/imagevault-backend/api/controllers"
	"github.com/martinsandoval/imagevault-backend/api/middleware"
	"github.com/martinsandoval/imagevault-backend/internal/ingest"
	"github.com/martinsandoval/imagevault-backend/internal/stats"
	"github.com/martinsandoval/imagevault-backend/pkg/config"
	"github.com/martinsandoval/imagevault-backend/pkg/db"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ingestService ingest.Service,
	statsService stats.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route(ingest.ImagesBasePath, func(r chi.Router) {
		r.Post("/", controllers.UploadImage(ingestService, cfg.Media.MaxUploadBytes(), logg))
		r.Get("/", controllers.ListImages(ingestService, logg))
		r.Get("/{imageID}", controllers.GetImage(ingestService, logg))
		r.Get("/{imageID}/thumbnails/{size}", controllers.GetThumbnail(ingestService, logg))
	})
	r.Get("/api/v1/stats", controllers.GetStats(statsService, logg))

	return r
}
