// Package admin mounts the administrator API: user and listing moderation,
// featuring, audit log queries and dashboard counters.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propertyhub/propertyhub/internal/approval"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

// UserDirectory lists accounts.
type UserDirectory interface {
	List(ctx context.Context, f users.ListFilters) ([]users.User, shared.Pagination, error)
}

// ListingSearch lists listings in every state.
type ListingSearch interface {
	AdminSearch(ctx context.Context, actor shared.Identity, f properties.SearchFilters) ([]properties.Property, shared.Pagination, error)
}

// Workflow applies moderation decisions.
type Workflow interface {
	ApproveUser(ctx context.Context, actor shared.Identity, id int64, in approval.UserDecision) (users.User, error)
	BulkUsers(ctx context.Context, actor shared.Identity, in approval.BulkUserAction) ([]users.User, error)
	DecideProperty(ctx context.Context, actor shared.Identity, id int64, in approval.PropertyDecision) (properties.Property, error)
	BulkProperties(ctx context.Context, actor shared.Identity, in approval.BulkPropertyAction) ([]properties.Property, error)
	Feature(ctx context.Context, actor shared.Identity, id int64, in approval.FeatureInput) (properties.Property, error)
}

// Mounter attaches extra admin routes such as audit logs and stats.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// Handler exposes /api/admin.
type Handler struct {
	logger   *slog.Logger
	users    UserDirectory
	listings ListingSearch
	workflow Workflow
	rbac     rbac.Middleware
	extra    []Mounter
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, directory UserDirectory, listings ListingSearch, workflow Workflow, rbacMW rbac.Middleware, extra ...Mounter) *Handler {
	return &Handler{logger: logger, users: directory, listings: listings, workflow: workflow, rbac: rbacMW, extra: extra}
}

// MountRoutes registers admin routes. Every route requires the administrator role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Require(rbac.Administer))
	r.Get("/users", h.listUsers)
	r.Patch("/users", h.bulkUsers)
	r.Patch("/users/{id}/approve", h.approveUser)
	r.Get("/properties", h.listProperties)
	r.Patch("/properties", h.bulkProperties)
	r.Patch("/properties/{id}/approve", h.decideProperty)
	r.Patch("/properties/{id}/feature", h.feature)
	for _, m := range h.extra {
		if m != nil {
			m.MountRoutes(r)
		}
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	f, err := users.ParseListFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items, paging, err := h.users.List(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, items, paging)
}

func (h *Handler) bulkUsers(w http.ResponseWriter, r *http.Request) {
	var in approval.BulkUserAction
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	out, err := h.workflow.BulkUsers(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"updated": len(out), "items": out})
}

func (h *Handler) approveUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in approval.UserDecision
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	u, err := h.workflow.ApproveUser(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, u)
}

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	f, err := properties.ParseSearchFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	items, paging, err := h.listings.AdminSearch(r.Context(), actor, f)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.Page(w, properties.Views(items), paging)
}

func (h *Handler) bulkProperties(w http.ResponseWriter, r *http.Request) {
	var in approval.BulkPropertyAction
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	out, err := h.workflow.BulkProperties(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"updated": len(out), "items": properties.Views(out)})
}

func (h *Handler) decideProperty(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in approval.PropertyDecision
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.workflow.DecideProperty(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, p.View())
}

func (h *Handler) feature(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in approval.FeatureInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	actor, _ := shared.IdentityFromContext(r.Context())
	p, err := h.workflow.Feature(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, p.View())
}
