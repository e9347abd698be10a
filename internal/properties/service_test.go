package properties

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/rbac"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// memRepo is an in-memory Repository. Transactions are not rolled back; tests
// only inspect state after successful calls or assert the absence of writes.
type memRepo struct {
	items   map[int64]Property
	nextID  int64
	keys    map[string]bool
	audits  []audit.Entry
	views   map[int64]int
	viewErr error
	last    SearchFilters
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[int64]Property{}, keys: map[string]bool{}, views: map[int64]int{}}
}

func (m *memRepo) put(p Property) Property {
	m.nextID++
	p.ID = m.nextID
	if p.Images == nil {
		p.Images = []string{}
	}
	m.items[p.ID] = p
	return p
}

func (m *memRepo) Get(_ context.Context, id int64) (Property, error) {
	p, ok := m.items[id]
	if !ok || p.IsDeleted {
		return Property{}, ErrNotFound
	}
	return p, nil
}

func (m *memRepo) Search(_ context.Context, f SearchFilters) ([]Property, int, error) {
	m.last = f
	var matched []Property
	for _, p := range m.items {
		if p.IsDeleted {
			continue
		}
		switch f.Scope {
		case ScopePublic:
			if !p.State.IsPublic() {
				continue
			}
		case ScopeOwner:
			if p.OwnerID != f.OwnerID {
				continue
			}
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.SortBy == SortPriceAsc && matched[i].Price != matched[j].Price {
			return matched[i].Price < matched[j].Price
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	start := min(f.Page.Skip(), total)
	end := min(start+f.Page.Take(), total)
	return matched[start:end], total, nil
}

func (m *memRepo) IncrementViews(_ context.Context, id int64) error {
	if m.viewErr != nil {
		return m.viewErr
	}
	m.views[id]++
	return nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, memTx{m})
}

type memTx struct{ *memRepo }

func (t memTx) Insert(_ context.Context, p Property) (int64, error) {
	return t.put(p).ID, nil
}

func (t memTx) Update(_ context.Context, p Property) error {
	if _, ok := t.items[p.ID]; !ok {
		return ErrNotFound
	}
	t.items[p.ID] = p
	return nil
}

func (t memTx) SoftDelete(_ context.Context, id int64) error {
	p, ok := t.items[id]
	if !ok || p.IsDeleted {
		return ErrNotFound
	}
	p.IsDeleted = true
	t.items[id] = p
	return nil
}

func (t memTx) ClaimIdempotencyKey(_ context.Context, key string) error {
	if t.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	t.keys[key] = true
	return nil
}

func (t memTx) RecordAudit(_ context.Context, e audit.Entry) error {
	t.audits = append(t.audits, e)
	return nil
}

var (
	agent    = shared.Identity{UserID: 10, Email: "agent@example.com", Role: shared.RoleAgent}
	landlord = shared.Identity{UserID: 11, Email: "landlord@example.com", Role: shared.RoleLandlord}
	admin    = shared.Identity{UserID: 1, Email: "admin@example.com", Role: shared.RoleAdmin}
	buyer    = shared.Identity{UserID: 20, Email: "buyer@example.com", Role: shared.RoleBuyer}
)

func validInput() Input {
	return Input{
		Title:        "Sunny two-bedroom flat",
		Description:  "Close to the station.",
		PropertyType: "apartment",
		ListingType:  "rent",
		Price:        1500,
		Address:      "Jl. Merdeka 1",
		City:         "Bandung",
		Province:     "Jawa Barat",
		Bedrooms:     2,
		Bathrooms:    1,
		AreaSqm:      64,
	}
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func approved(p Property) Property {
	p.State.Approve(admin.UserID, now)
	return p
}

func TestCreateStartsPending(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.Create(t.Context(), agent, validInput(), "")
	require.NoError(t, err)
	assert.Equal(t, agent.UserID, p.OwnerID)
	assert.Equal(t, StatusPendingApproval, p.State.Status())
	assert.Equal(t, ApprovalSubmitted, p.State.Approval())
	assert.Equal(t, []string{}, p.Images)
}

func TestCreateRequiresListingRole(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(t.Context(), buyer, validInput(), "")
	assert.ErrorIs(t, err, rbac.ErrForbidden)
	_, err = svc.Create(t.Context(), shared.Identity{}, validInput(), "")
	assert.ErrorIs(t, err, rbac.ErrUnauthenticated)
}

func TestCreateValidates(t *testing.T) {
	svc, repo := newTestService()
	in := validInput()
	in.Price = 0
	in.PropertyType = "castle"
	_, err := svc.Create(t.Context(), agent, in, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "price")
	assert.Empty(t, repo.items)
}

func TestCreateIdempotencyKey(t *testing.T) {
	svc, repo := newTestService()
	_, err := svc.Create(t.Context(), agent, validInput(), "submit-1")
	require.NoError(t, err)
	_, err = svc.Create(t.Context(), agent, validInput(), "submit-1")
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Len(t, repo.items, 1)
}

func TestOwnerEditResubmitsRejectedListing(t *testing.T) {
	svc, repo := newTestService()
	p := validInput().toProperty(agent.UserID)
	p.State.Reject("photos missing")
	p = repo.put(p)

	title := "Sunny flat with photos"
	updated, err := svc.Update(t.Context(), agent, p.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, StatusPendingApproval, updated.State.Status())
	assert.Equal(t, ApprovalSubmitted, updated.State.Approval())
	assert.Empty(t, repo.audits)
}

func TestOwnerEditKeepsApprovedListingLive(t *testing.T) {
	svc, repo := newTestService()
	p := repo.put(approved(validInput().toProperty(agent.UserID)))

	price := 1400.0
	updated, err := svc.Update(t.Context(), agent, p.ID, Patch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 1400.0, updated.Price)
	assert.True(t, updated.State.IsPublic())
}

func TestUpdateRejectsBlankedField(t *testing.T) {
	svc, repo := newTestService()
	p := repo.put(validInput().toProperty(agent.UserID))

	blank := "   "
	_, err := svc.Update(t.Context(), agent, p.ID, Patch{Title: &blank})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, "Sunny two-bedroom flat", repo.items[p.ID].Title)
}

func TestUpdateByNonOwnerForbidden(t *testing.T) {
	svc, repo := newTestService()
	p := repo.put(validInput().toProperty(agent.UserID))

	title := "Hijacked"
	_, err := svc.Update(t.Context(), landlord, p.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestAdminEditIsAudited(t *testing.T) {
	svc, repo := newTestService()
	p := validInput().toProperty(agent.UserID)
	p.State.RequestRevision("add parking details")
	p = repo.put(p)

	desc := "Close to the station. One parking slot."
	updated, err := svc.Update(t.Context(), admin, p.ID, Patch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, ApprovalRevisionRequested, updated.State.Approval(), "admin edits do not resubmit")

	require.Len(t, repo.audits, 1)
	entry := repo.audits[0]
	assert.Equal(t, audit.ActionPropertyUpdate, entry.Action)
	assert.Equal(t, admin.UserID, entry.ActorID)
	assert.Equal(t, p.ID, entry.EntityID)
	require.NotNil(t, entry.TargetUserID)
	assert.Equal(t, agent.UserID, *entry.TargetUserID)
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	own := repo.put(validInput().toProperty(agent.UserID))
	other := repo.put(validInput().toProperty(landlord.UserID))

	require.NoError(t, svc.Delete(t.Context(), agent, own.ID))
	assert.True(t, repo.items[own.ID].IsDeleted)
	assert.Empty(t, repo.audits)

	assert.ErrorIs(t, svc.Delete(t.Context(), agent, other.ID), ErrNotOwner)
	require.NoError(t, svc.Delete(t.Context(), admin, other.ID))
	require.Len(t, repo.audits, 1)
	assert.Equal(t, audit.ActionPropertyDelete, repo.audits[0].Action)

	assert.ErrorIs(t, svc.Delete(t.Context(), agent, own.ID), ErrNotFound)
}

func TestGetVisibility(t *testing.T) {
	svc, repo := newTestService()
	pending := repo.put(validInput().toProperty(agent.UserID))
	live := repo.put(approved(validInput().toProperty(agent.UserID)))

	_, err := svc.Get(t.Context(), shared.Identity{}, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(t.Context(), buyer, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.Get(t.Context(), agent, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
	_, err = svc.Get(t.Context(), admin, pending.ID)
	require.NoError(t, err)
	assert.Zero(t, repo.views[pending.ID])

	got, err = svc.Get(t.Context(), shared.Identity{}, live.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)
	assert.Equal(t, 1, repo.views[live.ID])
}

func TestGetSurvivesViewCounterFailure(t *testing.T) {
	svc, repo := newTestService()
	live := repo.put(approved(validInput().toProperty(agent.UserID)))
	repo.viewErr = errors.New("connection reset")

	got, err := svc.Get(t.Context(), buyer, live.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewCount)
}

func TestSearchPublicPriceRange(t *testing.T) {
	svc, repo := newTestService()
	for _, price := range []float64{2500, 1500, 400, 500, 2000} {
		in := validInput()
		in.Price = price
		repo.put(approved(in.toProperty(agent.UserID)))
	}
	hidden := validInput()
	hidden.Price = 1000
	repo.put(hidden.toProperty(agent.UserID))
	deleted := approved(validInput().toProperty(agent.UserID))
	deleted.IsDeleted = true
	repo.put(deleted)

	minP, maxP := 500.0, 2000.0
	items, paging, err := svc.Search(t.Context(), SearchFilters{
		MinPrice: &minP, MaxPrice: &maxP, SortBy: SortPriceAsc, Status: StatusRejected, OwnerID: 99,
	})
	require.NoError(t, err)

	var prices []float64
	for _, p := range items {
		prices = append(prices, p.Price)
	}
	assert.Equal(t, []float64{500, 1500, 2000}, prices)
	assert.Equal(t, 3, paging.Total)
	assert.Equal(t, ScopePublic, repo.last.Scope)
	assert.Empty(t, repo.last.Status)
	assert.Zero(t, repo.last.OwnerID)
}

func TestSearchPagination(t *testing.T) {
	svc, repo := newTestService()
	for range 25 {
		repo.put(approved(validInput().toProperty(agent.UserID)))
	}

	items, paging, err := svc.Search(t.Context(), SearchFilters{Page: shared.NewPageRequest(2, 10, DefaultSearchLimit)})
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Equal(t, shared.Pagination{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasMore: true}, paging)

	items, paging, err = svc.Search(t.Context(), SearchFilters{Page: shared.NewPageRequest(3, 10, DefaultSearchLimit)})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.False(t, paging.HasMore)

	items, paging, err = svc.Search(t.Context(), SearchFilters{Page: shared.NewPageRequest(9, 10, DefaultSearchLimit)})
	require.NoError(t, err)
	assert.Equal(t, []Property{}, items)
	assert.False(t, paging.HasMore)
}

func TestListMineAndAdminSearchScopes(t *testing.T) {
	svc, repo := newTestService()
	repo.put(validInput().toProperty(agent.UserID))
	repo.put(validInput().toProperty(landlord.UserID))

	items, _, err := svc.ListMine(t.Context(), agent, SearchFilters{OwnerID: landlord.UserID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, agent.UserID, items[0].OwnerID)
	assert.Equal(t, ScopeOwner, repo.last.Scope)

	_, _, err = svc.AdminSearch(t.Context(), agent, SearchFilters{})
	assert.ErrorIs(t, err, rbac.ErrForbidden)

	items, _, err = svc.AdminSearch(t.Context(), admin, SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
