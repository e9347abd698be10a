package approval

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/notifications"
	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/properties"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

// Store opens the transaction every administrative mutation runs in.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// Tx groups the writes of one decision so the mutation, its audit records and
// its notification commit or roll back together.
type Tx interface {
	GetUser(ctx context.Context, id int64) (users.User, error)
	SetUserStatus(ctx context.Context, id int64, status users.Status) error
	SetUserRole(ctx context.Context, id int64, role shared.Role) error
	MarkEmailVerified(ctx context.Context, id int64) error
	VerifyProfile(ctx context.Context, id int64, at time.Time) error

	GetProperty(ctx context.Context, id int64) (properties.Property, error)
	UpdateProperty(ctx context.Context, p properties.Property) error
	UpsertFeatured(ctx context.Context, m properties.FeaturedMarker) error
	DeleteFeatured(ctx context.Context, propertyID int64) (bool, error)

	Notify(ctx context.Context, n notifications.Notification) (notifications.Notification, error)
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// PGStore runs approval transactions on PostgreSQL.
type PGStore struct {
	pool  *pgxpool.Pool
	audit *audit.Writer
}

// NewStore constructs a PGStore.
func NewStore(pool *pgxpool.Pool, writer *audit.Writer) *PGStore {
	return &PGStore{pool: pool, audit: writer}
}

// WithTx wraps fn in a read-committed transaction.
func (s *PGStore) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{
			tx:            tx,
			audit:         s.audit,
			users:         users.NewQueries(tx),
			properties:    properties.NewQueries(tx),
			notifications: notifications.NewQueries(tx),
		})
	})
}

type pgTx struct {
	tx            pgx.Tx
	audit         *audit.Writer
	users         *users.Queries
	properties    *properties.Queries
	notifications *notifications.Queries
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (users.User, error) {
	return t.users.Get(ctx, id)
}

func (t *pgTx) SetUserStatus(ctx context.Context, id int64, status users.Status) error {
	return t.users.UpdateStatus(ctx, id, status)
}

func (t *pgTx) SetUserRole(ctx context.Context, id int64, role shared.Role) error {
	return t.users.UpdateRole(ctx, id, role)
}

func (t *pgTx) MarkEmailVerified(ctx context.Context, id int64) error {
	return t.users.MarkEmailVerified(ctx, id)
}

func (t *pgTx) VerifyProfile(ctx context.Context, id int64, at time.Time) error {
	return t.users.VerifyProfile(ctx, id, at)
}

func (t *pgTx) GetProperty(ctx context.Context, id int64) (properties.Property, error) {
	return t.properties.Get(ctx, id)
}

func (t *pgTx) UpdateProperty(ctx context.Context, p properties.Property) error {
	return t.properties.Update(ctx, p)
}

func (t *pgTx) UpsertFeatured(ctx context.Context, m properties.FeaturedMarker) error {
	return t.properties.UpsertFeatured(ctx, m)
}

func (t *pgTx) DeleteFeatured(ctx context.Context, propertyID int64) (bool, error) {
	return t.properties.DeleteFeatured(ctx, propertyID)
}

func (t *pgTx) Notify(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	return t.notifications.Insert(ctx, n)
}

func (t *pgTx) RecordAudit(ctx context.Context, e audit.Entry) error {
	return t.audit.Record(ctx, t.tx, e)
}
