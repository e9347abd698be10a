package inquiries

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

	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

type memStore struct {
	items []Inquiry
}

func (m *memStore) Insert(_ context.Context, i Inquiry) (Inquiry, error) {
	i.ID = int64(len(m.items) + 1)
	m.items = append(m.items, i)
	return i, nil
}

func (m *memStore) Get(_ context.Context, id int64) (Inquiry, error) {
	if id < 1 || int(id) > len(m.items) {
		return Inquiry{}, ErrNotFound
	}
	return m.items[id-1], nil
}

func (m *memStore) SetStatus(_ context.Context, id int64, status Status) error {
	if id < 1 || int(id) > len(m.items) {
		return ErrNotFound
	}
	m.items[id-1].Status = status
	return nil
}

func (m *memStore) ListReceived(_ context.Context, recipientID int64, f ListFilters) ([]Inquiry, int, error) {
	var out []Inquiry
	for _, i := range m.items {
		if i.RecipientID == recipientID && (f.Status == "" || i.Status == f.Status) {
			out = append(out, i)
		}
	}
	return out, len(out), nil
}

const ownerID = 50

type listings struct{}

func (listings) Visible(_ context.Context, _ shared.Identity, id int64) (properties.Property, error) {
	if id != 7 {
		return properties.Property{}, properties.ErrNotFound
	}
	return properties.Property{ID: 7, OwnerID: ownerID, Title: "Canal loft"}, nil
}

type accounts struct{}

func (accounts) Get(_ context.Context, id int64) (users.User, error) {
	return users.User{ID: id, Email: "owner@example.com"}, nil
}

type sentNote struct {
	n     notifications.Notification
	email string
}

type recordingNotifier struct{ sent []sentNote }

func (r *recordingNotifier) Send(_ context.Context, n notifications.Notification, email string) (notifications.Notification, error) {
	r.sent = append(r.sent, sentNote{n, email})
	return n, nil
}

var (
	owner = shared.Identity{UserID: ownerID, Email: "owner@example.com", Role: shared.RoleLandlord}
	buyer = shared.Identity{UserID: 3, Email: "buyer@example.com", Role: shared.RoleBuyer}
)

func newTestService() (*Service, *memStore, *recordingNotifier) {
	store := &memStore{}
	notifier := &recordingNotifier{}
	svc := NewService(store, listings{}, accounts{}, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store, notifier
}

func TestCreateAnonymousRequiresContact(t *testing.T) {
	svc, store, _ := newTestService()
	_, err := svc.Create(t.Context(), shared.Identity{}, 7, CreateInput{Message: "Is it still available?"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(t.Context(), shared.Identity{}, 7, CreateInput{Name: "Rina", Email: "not-an-email", Message: "Hi"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, store.items)

	inq, err := svc.Create(t.Context(), shared.Identity{}, 7, CreateInput{Name: " Rina ", Email: "Rina@Example.com", Message: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "Rina", inq.Name)
	assert.Equal(t, "rina@example.com", inq.Email)
	assert.Nil(t, inq.SenderID)
	assert.Equal(t, int64(ownerID), inq.RecipientID)
	assert.Equal(t, StatusNew, inq.Status)
}

func TestCreateSignedInFallsBackToAccount(t *testing.T) {
	svc, _, notifier := newTestService()
	inq, err := svc.Create(t.Context(), buyer, 7, CreateInput{Message: "Can I visit on Saturday?"})
	require.NoError(t, err)
	assert.Equal(t, buyer.Email, inq.Email)
	require.NotNil(t, inq.SenderID)
	assert.Equal(t, buyer.UserID, *inq.SenderID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(ownerID), notifier.sent[0].n.UserID)
	assert.Equal(t, notifications.KindInquiryReceived, notifier.sent[0].n.Kind)
	assert.Equal(t, "owner@example.com", notifier.sent[0].email)
	assert.Contains(t, notifier.sent[0].n.Message, "Canal loft")
}

func TestCreateRejectsHiddenAndOwnListing(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Create(t.Context(), buyer, 8, CreateInput{Message: "hello"})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = svc.Create(t.Context(), owner, 7, CreateInput{Message: "hello"})
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestUpdateStatusRecipientOnly(t *testing.T) {
	svc, store, _ := newTestService()
	inq, err := svc.Create(t.Context(), buyer, 7, CreateInput{Message: "hello"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(t.Context(), buyer, inq.ID, StatusInput{Status: "read"})
	assert.ErrorIs(t, err, ErrNotRecipient)
	_, err = svc.UpdateStatus(t.Context(), owner, inq.ID, StatusInput{Status: "archived"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	updated, err := svc.UpdateStatus(t.Context(), owner, inq.ID, StatusInput{Status: "replied"})
	require.NoError(t, err)
	assert.Equal(t, StatusReplied, updated.Status)
	assert.Equal(t, StatusReplied, store.items[0].Status)

	_, err = svc.UpdateStatus(t.Context(), owner, 99, StatusInput{Status: "read"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	svc, _, _ := newTestService()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Logger: logger}, 2)
	r := chi.NewRouter()
	r.Route("/api/properties", h.MountPropertyRoutes)
	r.Route("/api/inquiries", h.MountRoutes)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/properties/7/inquiries",
			strings.NewReader(`{"name":"Rina","email":"rina@example.com","message":"Hi"}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusCreated, post().Code)
	assert.Equal(t, http.StatusCreated, post().Code)
	limited := post()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), `"code":"RATE_LIMITED"`)

	req := httptest.NewRequest(http.MethodGet, "/api/inquiries?status=new", nil)
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), owner))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	req = httptest.NewRequest(http.MethodPatch, "/api/inquiries/1", strings.NewReader(`{"status":"closed"}`))
	req = req.WithContext(shared.ContextWithIdentity(req.Context(), owner))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"closed"`)
}
