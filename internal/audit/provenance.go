package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
)

// Provenance describes where a mutation came from.
type Provenance struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// IsZero reports whether no field is set.
func (p Provenance) IsZero() bool {
	return p == Provenance{}
}

// ProvenanceFromRequest reads the client address, user agent and chi request id.
// RealIP should already have rewritten RemoteAddr.
func ProvenanceFromRequest(r *http.Request) Provenance {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Provenance{
		IPAddress: ip,
		UserAgent: truncate(r.UserAgent(), maxUserAgentBytes),
		RequestID: truncate(middleware.GetReqID(r.Context()), maxRequestIDBytes),
	}
}

type provenanceKey struct{}

// ContextWithProvenance stores p in ctx.
func ContextWithProvenance(ctx context.Context, p Provenance) context.Context {
	return context.WithValue(ctx, provenanceKey{}, p)
}

// ProvenanceFromContext returns the provenance stored by Middleware.
func ProvenanceFromContext(ctx context.Context) Provenance {
	p, _ := ctx.Value(provenanceKey{}).(Provenance)
	return p
}

// Middleware captures request provenance so services can attach it to entries.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(ContextWithProvenance(r.Context(), ProvenanceFromRequest(r))))
	})
}

// Both values are client-controlled; chi copies X-Request-Id verbatim.
const (
	maxUserAgentBytes = 512
	maxRequestIDBytes = 128
)

// truncate returns valid UTF-8 of at most n bytes; the column is text.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
