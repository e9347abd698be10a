package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/propertyhub/propertyhub/internal/admin"
	"github.com/propertyhub/propertyhub/internal/auth"
	"github.com/propertyhub/propertyhub/internal/favorites"
	"github.com/propertyhub/propertyhub/internal/gate"
	"github.com/propertyhub/propertyhub/internal/inquiries"
	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/observability"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Gate    *gate.Gate
	Metrics *observability.Metrics

	AuthHandler         *auth.Handler
	PropertyHandler     *properties.Handler
	InquiryHandler      *inquiries.Handler
	FavoriteHandler     *favorites.Handler
	NotificationHandler *notifications.Handler
	AdminHandler        *admin.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with PropertyHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Gate != nil {
		r.Use(params.Gate.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.PropertyHandler != nil {
			r.Route("/properties", func(r chi.Router) {
				params.PropertyHandler.MountRoutes(r)
				if params.InquiryHandler != nil {
					params.InquiryHandler.MountPropertyRoutes(r)
				}
			})
			r.Route("/dashboard", params.PropertyHandler.MountDashboard)
		}
		if params.InquiryHandler != nil {
			r.Route("/inquiries", params.InquiryHandler.MountRoutes)
		}
		if params.FavoriteHandler != nil {
			r.Route("/favorites", params.FavoriteHandler.MountRoutes)
		}
		if params.NotificationHandler != nil {
			r.Route("/notifications", params.NotificationHandler.MountRoutes)
		}
		if params.AdminHandler != nil {
			r.Route("/admin", params.AdminHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
