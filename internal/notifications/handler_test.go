package notifications

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

func TestHandlerRoutes(t *testing.T) {
	svc, store, _ := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/api/notifications", NewHandler(logger, svc, rbac.Middleware{Logger: logger}).MountRoutes)

	_, err := svc.Send(t.Context(), Notification{UserID: alice.UserID, Kind: KindAccountApproved, Title: "Welcome", Message: "m"}, "")
	require.NoError(t, err)

	serve := func(method, path string, id shared.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if id.UserID != 0 {
			req = req.WithContext(shared.ContextWithIdentity(req.Context(), id))
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/api/notifications", shared.Identity{}).Code)

	rec := serve(http.MethodGet, "/api/notifications", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Welcome"`)
	assert.Contains(t, rec.Body.String(), `"unreadCount":1`)

	assert.Equal(t, http.StatusNotFound, serve(http.MethodPatch, "/api/notifications/1/read", bob).Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodPatch, "/api/notifications/1/read", alice).Code)
	assert.True(t, store.items[0].IsRead)

	rec = serve(http.MethodPatch, "/api/notifications/read-all", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":0`)
}
