package notifications

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Handler exposes the inbox endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers /api/notifications routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(rbac.Authenticated))
	r.Get("/", h.list)
	r.Patch("/read-all", h.markAllRead)
	r.Patch("/{id}/read", h.markRead)
}

type inboxResponse struct {
	Items       []Notification    `json:"items"`
	Pagination  shared.Pagination `json:"pagination"`
	UnreadCount int               `json:"unreadCount"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	unread, _ := strconv.ParseBool(q.Get("unread"))

	actor, _ := shared.IdentityFromContext(r.Context())
	inbox, err := h.service.List(r.Context(), actor, ListFilters{
		UnreadOnly: unread,
		Page:       shared.NewPageRequest(page, limit, shared.DefaultPageSize),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, inboxResponse{Items: inbox.Items, Pagination: inbox.Pagination, UnreadCount: inbox.UnreadCount})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "isRead": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.IdentityFromContext(r.Context())
	n, err := h.service.MarkAllRead(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"updated": n})
}
