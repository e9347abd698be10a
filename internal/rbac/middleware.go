package rbac

import (
	"log/slog"
	"net/http"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Middleware wires capability checks for JSON handlers.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the request identity satisfies the capability.
func (m Middleware) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := shared.IdentityFromContext(r.Context())
			if err := c.Check(id); err != nil {
				if m.Logger != nil && id.UserID != 0 {
					m.Logger.Warn("capability denied",
						slog.String("capability", c.Name()),
						slog.Int64("user_id", id.UserID),
						slog.String("role", string(id.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, m.Logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Current returns the identity or an error matching the capability check.
func Current(r *http.Request, c Capability) (shared.Identity, error) {
	id, _ := shared.IdentityFromContext(r.Context())
	if err := c.Check(id); err != nil {
		return shared.Identity{}, err
	}
	return id, nil
}
