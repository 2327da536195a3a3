package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/audit"
	"github.com/grand-nerud/backoffice/internal/auth"
	"github.com/grand-nerud/backoffice/internal/companies"
	"github.com/grand-nerud/backoffice/internal/deals"
	"github.com/grand-nerud/backoffice/internal/observability"
	"github.com/grand-nerud/backoffice/internal/platform/httpx"
	"github.com/grand-nerud/backoffice/internal/users"
	"github.com/grand-nerud/backoffice/jobs"
)

// Mounter is implemented by every handler that registers its own routes.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// Resource mounts an admin-only handler under one or more path prefixes.
type Resource struct {
	Paths   []string
	Handler Mounter
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *zap.Logger
	Config  *Config
	Metrics *observability.Metrics

	Auth             *auth.Middleware
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	CompaniesHandler *companies.Handler
	DealsHandler     *deals.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
	MasterData       []Resource

	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not allowed here")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Ready(ctx); err != nil {
				if params.Logger != nil {
					params.Logger.Warn("readiness check failed", zap.Error(err))
				}
				httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "dependencies are not ready")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.Auth == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(params.Auth.RequireUser)
		if params.DealsHandler != nil {
			r.Route("/deals", params.DealsHandler.MountRoutes)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Auth.RequireAdmin)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.CompaniesHandler != nil {
			r.Route("/companies", params.CompaniesHandler.MountRoutes)
		}
		for _, res := range params.MasterData {
			for _, path := range res.Paths {
				r.Route(path, res.Handler.MountRoutes)
			}
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
