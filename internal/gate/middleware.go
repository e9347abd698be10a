package gate

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/propertyhub/propertyhub/internal/auth"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Identity headers forwarded to downstream handlers.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// Verifier validates access tokens.
type Verifier interface {
	VerifyAccessToken(raw string) (*auth.Claims, error)
}

// Observer receives gate decisions.
type Observer interface {
	ObserveGate(class, outcome string)
}

// Gate enforces path classes before requests reach the router.
type Gate struct {
	routes   Routes
	verifier Verifier
	logger   *slog.Logger
	observer Observer
}

// New constructs a Gate. observer may be nil.
func New(verifier Verifier, routes Routes, logger *slog.Logger, observer Observer) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{routes: routes, verifier: verifier, logger: logger, observer: observer}
}

// Middleware applies the gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if g.routes.IsExempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		// Identity headers are only ever set by the gate.
		r.Header.Del(HeaderUserID)
		r.Header.Del(HeaderUserEmail)
		r.Header.Del(HeaderUserRole)

		id, authenticated := g.identify(r)
		class := g.routes.Classify(path)
		api := IsAPI(path)

		switch class {
		case ClassAuthOnly:
			if authenticated {
				g.observe(class, "redirect_dashboard")
				http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
				return
			}
		case ClassDashboard, ClassAdmin:
			if !authenticated {
				g.observe(class, "unauthenticated")
				if api {
					httpx.RespondError(w, g.logger, rbac.ErrUnauthenticated)
					return
				}
				http.Redirect(w, r, loginRedirect(r), http.StatusTemporaryRedirect)
				return
			}
			capability, fallback := rbac.Dashboard, "/"
			if class == ClassAdmin {
				capability, fallback = rbac.Administer, "/dashboard"
			}
			if !capability.Allows(id.Role) {
				g.observe(class, "forbidden")
				g.logger.Debug("gate denied",
					slog.String("path", path),
					slog.Int64("user_id", id.UserID),
					slog.String("role", string(id.Role)))
				if api {
					httpx.RespondError(w, g.logger, rbac.ErrForbidden)
					return
				}
				http.Redirect(w, r, fallback, http.StatusTemporaryRedirect)
				return
			}
		}

		g.observe(class, "pass")
		if authenticated {
			r.Header.Set(HeaderUserID, strconv.FormatInt(id.UserID, 10))
			r.Header.Set(HeaderUserEmail, id.Email)
			r.Header.Set(HeaderUserRole, string(id.Role))
			r = r.WithContext(shared.ContextWithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) identify(r *http.Request) (shared.Identity, bool) {
	raw := auth.AccessTokenFromRequest(r)
	if raw == "" || g.verifier == nil {
		return shared.Identity{}, false
	}
	claims, err := g.verifier.VerifyAccessToken(raw)
	if err != nil {
		return shared.Identity{}, false
	}
	id, err := claims.Identity()
	if err != nil {
		return shared.Identity{}, false
	}
	return id, true
}

func (g *Gate) observe(class Class, outcome string) {
	if g.observer != nil {
		g.observer.ObserveGate(class.String(), outcome)
	}
}

func loginRedirect(r *http.Request) string {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return "/login?redirect=" + url.QueryEscape(target)
}
