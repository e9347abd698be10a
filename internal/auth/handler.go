package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/users"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cookies CookieConfig
	rbac    rbac.Middleware
	limit   int
}

// NewHandler builds Handler instance. limit caps credential attempts per IP per minute.
func NewHandler(logger *slog.Logger, service *Service, cookies CookieConfig, rbacMW rbac.Middleware, limit int) *Handler {
	if limit <= 0 {
		limit = 10
	}
	return &Handler{logger: logger, service: service, cookies: cookies, rbac: rbacMW, limit: limit}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(h.limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(httpx.RateLimited),
		))
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)
	r.With(h.rbac.Require(rbac.Authenticated)).Get("/me", h.me)
}

type sessionResponse struct {
	User            users.User `json:"user"`
	AccessToken     string     `json:"accessToken"`
	AccessExpiresAt time.Time  `json:"accessExpiresAt"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, pair, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusCreated, user, pair)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, pair, err := h.service.Login(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusOK, user, pair)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	user, pair, err := h.service.Refresh(r.Context(), RefreshTokenFromRequest(r))
	if err != nil {
		ClearAuthCookies(w, h.cookies)
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.writeSession(w, http.StatusOK, user, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), RefreshTokenFromRequest(r)); err != nil {
		h.logger.Warn("revoke refresh token failed", slog.Any("error", err))
	}
	ClearAuthCookies(w, h.cookies)
	httpx.OK(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, err := rbac.Current(r, rbac.Authenticated)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Me(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, user users.User, pair TokenPair) {
	SetAuthCookies(w, h.cookies, pair)
	httpx.OK(w, status, sessionResponse{
		User:            user,
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
	})
}
