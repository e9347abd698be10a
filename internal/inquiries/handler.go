package inquiries

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Handler exposes inquiry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	limit   int
}

// NewHandler builds Handler instance. limit caps submissions per client per minute.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limit int) *Handler {
	if limit <= 0 {
		limit = 5
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, limit: limit}
}

// MountPropertyRoutes registers the public submission route under /api/properties.
func (h *Handler) MountPropertyRoutes(r chi.Router) {
	limiter := httprate.Limit(h.limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(httpx.RateLimited),
	)
	r.With(limiter).Post("/{id}/inquiries", h.create)
}

// MountRoutes registers /api/inquiries routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(rbac.Authenticated))
	r.Get("/", h.list)
	r.Patch("/{id}", h.updateStatus)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	propertyID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	sender, _ := shared.IdentityFromContext(r.Context())
	inq, err := h.service.Create(r.Context(), sender, propertyID, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, inq)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f ListFilters
	if raw := q.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			httpx.RespondError(w, h.logger, httpx.Validation("unknown status %q", raw))
			return
		}
		f.Status = status
	}
	f.PropertyID, _ = strconv.ParseInt(q.Get("propertyId"), 10, 64)
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f.Page = shared.NewPageRequest(page, limit, shared.DefaultPageSize)

	actor, _ := shared.IdentityFromContext(r.Context())
	items, paging, err := h.service.ListReceived(r.Context(), actor, f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, items, paging)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	inq, err := h.service.UpdateStatus(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, inq)
}
