package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/usagereg/usagereg/internal/api"
	"github.com/usagereg/usagereg/internal/auth"
	"github.com/usagereg/usagereg/internal/observability"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/synchronizer"
	"github.com/usagereg/usagereg/jobs"
	"github.com/usagereg/usagereg/report"
	"github.com/usagereg/usagereg/web"
)

// SyncStatus is the part of the synchronizer the health check reads.
type SyncStatus interface {
	State() synchronizer.State
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Sync          SyncStatus
	AuthHandler   *auth.Handler
	APIHandler    *api.Handler
	ReportHandler *report.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with usagereg defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if params.Sync != nil {
			body["sync"] = string(params.Sync.State())
		}
		httpx.JSON(w, http.StatusOK, body)
	})

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.APIHandler != nil {
		r.Route("/api", func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Use(params.AuthHandler.Authenticate)
			}
			params.APIHandler.MountRoutes(r)
		})
	}
	if params.ReportHandler != nil {
		r.Route("/reports", func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Use(params.AuthHandler.Authenticate)
			}
			params.ReportHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Use(params.AuthHandler.Authenticate)
			}
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
		return r
	}
	fileServer := http.FileServer(http.FS(staticFS))
	r.Handle("/static/*", staticCacheHandler(http.StripPrefix("/static/", fileServer)))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFS, "index.html")
	})

	return r
}

// staticCacheHandler caches static assets in the browser for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
