package properties

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// IdempotencyHeader carries the client's submission key.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages listing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers /api/properties routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.search)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ManageListings))
		r.Post("/", h.create)
		r.Get("/mine", h.listMine)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// MountDashboard registers /api/dashboard listing routes.
func (h *Handler) MountDashboard(r chi.Router) {
	r.With(h.rbac.Require(rbac.ManageListings)).Get("/properties", h.listMine)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseSearchFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items, paging, err := h.service.Search(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, Views(items), paging)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseSearchFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, _ := shared.IdentityFromContext(r.Context())
	items, paging, err := h.service.ListMine(r.Context(), id, filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, Views(items), paging)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	viewer, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Get(r.Context(), viewer, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, p.View())
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Create(r.Context(), actor, in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, p.View())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.service.Update(r.Context(), actor, id, patch)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, p.View())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}
