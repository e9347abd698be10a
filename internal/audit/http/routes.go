package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Exports scan the whole filtered log, so each admin gets a small budget.
const (
	exportLimit  = 10
	exportWindow = time.Minute
)

// MountRoutes registers the audit trail under the admin router, which already
// enforces the audit capability.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/audit-logs", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.With(exportLimiter()).Get("/export.csv", h.handleExport)
	})
}

func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(exportLimit, exportWindow,
		httprate.WithKeyFuncs(exportKey),
		httprate.WithLimitHandler(httpx.RateLimited),
	)
}

// exportKey buckets by admin id; the IP fallback only applies when the gate is bypassed in tests.
func exportKey(r *http.Request) (string, error) {
	if id, ok := shared.IdentityFromContext(r.Context()); ok {
		return "audit-export:" + strconv.FormatInt(id.UserID, 10), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "audit-export-ip:" + ip, nil
}
