package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/approval"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

type stubDirectory struct{ last users.ListFilters }

func (s *stubDirectory) List(_ context.Context, f users.ListFilters) ([]users.User, shared.Pagination, error) {
	s.last = f
	return []users.User{{ID: 4, Email: "agent@example.com", Role: shared.RoleAgent}}, shared.NewPagination(f.Page, 1, 1), nil
}

type stubListings struct{ last properties.SearchFilters }

func (s *stubListings) AdminSearch(_ context.Context, _ shared.Identity, f properties.SearchFilters) ([]properties.Property, shared.Pagination, error) {
	s.last = f
	return nil, shared.NewPagination(f.Page, 0, 0), nil
}

type stubWorkflow struct {
	bulkUsers approval.BulkUserAction
	decision  approval.PropertyDecision
	feature   approval.FeatureInput
	decideID  int64
}

func (s *stubWorkflow) ApproveUser(_ context.Context, _ shared.Identity, id int64, in approval.UserDecision) (users.User, error) {
	if id == 99 {
		return users.User{}, users.ErrNotFound
	}
	return users.User{ID: id, Status: users.StatusActive}, nil
}

func (s *stubWorkflow) BulkUsers(_ context.Context, _ shared.Identity, in approval.BulkUserAction) ([]users.User, error) {
	s.bulkUsers = in
	return make([]users.User, len(in.IDs)), nil
}

func (s *stubWorkflow) DecideProperty(_ context.Context, _ shared.Identity, id int64, in approval.PropertyDecision) (properties.Property, error) {
	s.decideID, s.decision = id, in
	if in.Action == approval.PropertyReject && in.Note == "" {
		return properties.Property{}, httpx.Validation("note is required")
	}
	return properties.Property{ID: id, State: properties.NewSubmittedState()}, nil
}

func (s *stubWorkflow) BulkProperties(_ context.Context, _ shared.Identity, in approval.BulkPropertyAction) ([]properties.Property, error) {
	return nil, nil
}

func (s *stubWorkflow) Feature(_ context.Context, _ shared.Identity, id int64, in approval.FeatureInput) (properties.Property, error) {
	s.feature = in
	return properties.Property{ID: id, State: properties.NewSubmittedState()}, nil
}

type pingMounter struct{}

func (pingMounter) MountRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

var (
	adminID = shared.Identity{UserID: 1, Email: "admin@example.com", Role: shared.RoleAdmin}
	buyer   = shared.Identity{UserID: 2, Email: "buyer@example.com", Role: shared.RoleBuyer}
)

func newRouter() (http.Handler, *stubDirectory, *stubListings, *stubWorkflow) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir, listings, wf := &stubDirectory{}, &stubListings{}, &stubWorkflow{}
	r := chi.NewRouter()
	r.Route("/api/admin", NewHandler(logger, dir, listings, wf, rbac.Middleware{Logger: logger}, pingMounter{}).MountRoutes)
	return r, dir, listings, wf
}

func serve(h http.Handler, method, path, body string, id shared.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if id.UserID != 0 {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireAdministrator(t *testing.T) {
	r, _, _, _ := newRouter()
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/admin/users", "", shared.Identity{}).Code)
	rec := serve(r, http.MethodGet, "/api/admin/users", "", buyer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/admin/ping", "", buyer).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/api/admin/ping", "", adminID).Code)
}

func TestListUsersParsesFilters(t *testing.T) {
	r, dir, _, _ := newRouter()
	rec := serve(r, http.MethodGet, "/api/admin/users?role=agent&status=pending_verification&page=2", "", adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, shared.RoleAgent, dir.last.Role)
	assert.Equal(t, users.StatusPendingVerification, dir.last.Status)
	assert.Equal(t, 2, dir.last.Page.Page)
	assert.Contains(t, rec.Body.String(), `"email":"agent@example.com"`)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/admin/users?role=pirate", "", adminID).Code)
}

func TestListPropertiesUsesAdminFilters(t *testing.T) {
	r, _, listings, _ := newRouter()
	rec := serve(r, http.MethodGet, "/api/admin/properties?approvalStatus=revision_requested", "", adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, properties.ApprovalRevisionRequested, listings.last.Approval)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

func TestBulkAndDecisionRoutes(t *testing.T) {
	r, _, _, wf := newRouter()

	rec := serve(r, http.MethodPatch, "/api/admin/users", `{"ids":[3,4],"action":"changeRole","role":"landlord"}`, adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{3, 4}, wf.bulkUsers.IDs)
	assert.Contains(t, rec.Body.String(), `"updated":2`)

	rec = serve(r, http.MethodPatch, "/api/admin/users/99/approve", `{"action":"approve"}`, adminID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodPatch, "/api/admin/properties/8/approve", `{"action":"reject"}`, adminID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(8), wf.decideID)

	rec = serve(r, http.MethodPatch, "/api/admin/properties/8/approve", `{"action":"requestRevision","note":"more photos"}`, adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "more photos", wf.decision.Note)

	rec = serve(r, http.MethodPatch, "/api/admin/properties/8/feature",
		`{"featured":true,"startDate":"2024-06-01T00:00:00Z","endDate":"2024-07-01T00:00:00Z","amount":75}`, adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, wf.feature.Featured)
	assert.True(t, *wf.feature.Featured)
	assert.Equal(t, 75.0, wf.feature.Amount)

	rec = serve(r, http.MethodPatch, "/api/admin/properties", `not json`, adminID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
