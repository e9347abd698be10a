package gate

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/auth"
	"github.com/propertyhub/propertyhub/internal/shared"
)

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveGate(class, outcome string) {
	o.outcomes = append(o.outcomes, class+":"+outcome)
}

type seen struct {
	called  bool
	headers http.Header
	id      shared.Identity
	hasID   bool
}

func newTestGate(t *testing.T) (*auth.TokenService, http.Handler, *seen, *recordingObserver) {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "gate-secret"})
	require.NoError(t, err)
	s := &seen{}
	obs := &recordingObserver{}
	g := New(tokens, DefaultRoutes(), slog.New(slog.NewTextHandler(io.Discard, nil)), obs)
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.headers = r.Header.Clone()
		s.id, s.hasID = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return tokens, h, s, obs
}

func tokenFor(t *testing.T, tokens *auth.TokenService, role shared.Role) string {
	t.Helper()
	token, err := tokens.IssueAccessToken(shared.Identity{UserID: 7, Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClassifyPrecedence(t *testing.T) {
	routes := DefaultRoutes()
	cases := map[string]Class{
		"/":                        ClassPublic,
		"/properties/12":           ClassPublic,
		"/api/properties":          ClassPublic,
		"/api/properties/mine":     ClassDashboard,
		"/login":                   ClassAuthOnly,
		"/register/agent":          ClassAuthOnly,
		"/dashboard":               ClassDashboard,
		"/dashboard/properties":    ClassDashboard,
		"/api/dashboard/stats":     ClassDashboard,
		"/admin":                   ClassAdmin,
		"/admin/users":             ClassAdmin,
		"/api/admin/properties/1":  ClassAdmin,
		"/administrator":           ClassPublic,
		"/dashboarding":            ClassPublic,
	}
	for path, want := range cases {
		assert.Equal(t, want, routes.Classify(path), path)
	}
	assert.True(t, routes.IsExempt("/static/css/app.css"))
	assert.True(t, routes.IsExempt("/healthz"))
	assert.False(t, routes.IsExempt("/staticfiles"))
}

func TestAnonymousPageRedirectsToLogin(t *testing.T) {
	_, h, s, _ := newTestGate(t)
	rec := serve(h, http.MethodGet, "/dashboard/properties?page=2", "")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard%2Fproperties%3Fpage%3D2", rec.Header().Get("Location"))
	assert.False(t, s.called)
}

func TestAnonymousAPIGetsUnauthorizedEnvelope(t *testing.T) {
	_, h, s, _ := newTestGate(t)
	rec := serve(h, http.MethodGet, "/api/admin/users", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code       string `json:"code"`
			StatusCode int    `json:"statusCode"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, 401, body.Error.StatusCode)
	assert.False(t, s.called)
}

func TestBuyerOnAdminPaths(t *testing.T) {
	tokens, h, s, obs := newTestGate(t)
	token := tokenFor(t, tokens, shared.RoleBuyer)

	rec := serve(h, http.MethodGet, "/admin/users", token)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = serve(h, http.MethodGet, "/api/admin/users", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	rec = serve(h, http.MethodGet, "/dashboard", token)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.False(t, s.called)
	assert.Contains(t, obs.outcomes, "admin:forbidden")
}

func TestAuthenticatedUserLeavesAuthPages(t *testing.T) {
	tokens, h, _, _ := newTestGate(t)
	rec := serve(h, http.MethodGet, "/login", tokenFor(t, tokens, shared.RoleTenant))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	_, h, s, _ := newTestGate(t)
	rec = serve(h, http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.called)
}

func TestAdminPassesAndHeadersAreReplaced(t *testing.T) {
	tokens, h, s, _ := newTestGate(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: tokenFor(t, tokens, shared.RoleAdmin)})
	req.Header.Set(HeaderUserID, "999")
	req.Header.Set(HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", s.headers.Get(HeaderUserID))
	assert.Equal(t, "u@example.com", s.headers.Get(HeaderUserEmail))
	assert.Equal(t, "admin", s.headers.Get(HeaderUserRole))
	require.True(t, s.hasID)
	assert.Equal(t, int64(7), s.id.UserID)
}

func TestSpoofedHeadersStrippedForAnonymous(t *testing.T) {
	_, h, s, _ := newTestGate(t)
	req := httptest.NewRequest(http.MethodGet, "/api/properties", nil)
	req.Header.Set(HeaderUserID, "1")
	req.Header.Set(HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, s.called)
	assert.Empty(t, s.headers.Get(HeaderUserID))
	assert.Empty(t, s.headers.Get(HeaderUserRole))
	assert.False(t, s.hasID)
}

func TestInvalidTokenTreatedAsAnonymous(t *testing.T) {
	_, h, _, _ := newTestGate(t)
	rec := serve(h, http.MethodGet, "/api/dashboard/properties", "forged.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerHeaderAccepted(t *testing.T) {
	tokens, h, s, _ := newTestGate(t)
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/properties", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, tokens, shared.RoleLandlord))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.called)
}

func TestExemptPathsSkipGate(t *testing.T) {
	_, h, s, _ := newTestGate(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderUserID, "5")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", s.headers.Get(HeaderUserID))
}
