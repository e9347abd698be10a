package properties

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()
	svc, repo := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Route("/api/properties", h.MountRoutes)
	r.Route("/api/dashboard", h.MountDashboard)
	return r, repo
}

func as(req *http.Request, id shared.Identity) *http.Request {
	return req.WithContext(shared.ContextWithIdentity(req.Context(), id))
}

func TestHandlerCreate(t *testing.T) {
	router, repo := newTestRouter(t)
	body := `{"title":"Loft","description":"Open plan","propertyType":"condo","listingType":"sale",
		"price":250000,"address":"Jl. Braga 5","city":"Bandung","province":"Jawa Barat","bedrooms":1,"bathrooms":1,"areaSqm":48}`

	req := as(httptest.NewRequest(http.MethodPost, "/api/properties/", strings.NewReader(body)), agent)
	req.Header.Set(IdempotencyHeader, "loft-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			ID             int64  `json:"id"`
			Status         string `json:"status"`
			ApprovalStatus string `json:"approvalStatus"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pending_approval", resp.Data.Status)
	assert.Equal(t, "submitted", resp.Data.ApprovalStatus)
	assert.Contains(t, repo.items, resp.Data.ID)

	req = as(httptest.NewRequest(http.MethodPost, "/api/properties/", strings.NewReader(body)), agent)
	req.Header.Set(IdempotencyHeader, "loft-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"CONFLICT"`)
}

func TestHandlerCreateRequiresRole(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/properties/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/api/properties/", strings.NewReader(`{}`)), buyer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerSearch(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.put(approved(validInput().toProperty(agent.UserID)))
	repo.put(validInput().toProperty(agent.UserID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties?sortBy=price_asc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Items      []map[string]any  `json:"items"`
			Pagination shared.Pagination `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 1, resp.Data.Pagination.Total)
	assert.Equal(t, DefaultSearchLimit, resp.Data.Pagination.Limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties?sortBy=cheapest", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"VALIDATION_ERROR"`)
}

func TestHandlerGet(t *testing.T) {
	router, repo := newTestRouter(t)
	pending := repo.put(validInput().toProperty(agent.UserID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/properties/1", nil), agent))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":1`)
	assert.Equal(t, int64(1), pending.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDashboardListsOwnListings(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.put(validInput().toProperty(agent.UserID))
	repo.put(validInput().toProperty(landlord.UserID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/dashboard/properties", nil), landlord))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestHandlerUpdateAndDelete(t *testing.T) {
	router, repo := newTestRouter(t)
	p := repo.put(validInput().toProperty(agent.UserID))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPatch, "/api/properties/1", strings.NewReader(`{"bedrooms":3}`)), agent))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, repo.items[p.ID].Bedrooms)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/api/properties/1", nil), landlord))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/api/properties/1", nil), agent))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.items[p.ID].IsDeleted)
}
