package favorites

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Handler exposes favorites endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers /api/favorites routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(rbac.Authenticated))
	r.Get("/", h.list)
	r.Post("/{propertyID}", h.add)
	r.Delete("/{propertyID}", h.remove)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	actor, _ := shared.IdentityFromContext(r.Context())
	items, paging, err := h.service.List(r.Context(), actor, shared.NewPageRequest(page, limit, shared.DefaultPageSize))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, items, paging)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "propertyID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Add(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]int64{"propertyId": id})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "propertyID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Remove(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"propertyId": id})
}
