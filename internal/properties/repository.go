package properties

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/audit"
	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/shared"
)

const idempotencyModule = "properties.create"

// Repository is the persistence port of the listing service.
type Repository interface {
	Get(ctx context.Context, id int64) (Property, error)
	Search(ctx context.Context, f SearchFilters) ([]Property, int, error)
	IncrementViews(ctx context.Context, id int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Property, error)
	Insert(ctx context.Context, p Property) (int64, error)
	Update(ctx context.Context, p Property) error
	SoftDelete(ctx context.Context, id int64) error
	ClaimIdempotencyKey(ctx context.Context, key string) error
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool    *pgxpool.Pool
	queries *Queries
	audit   *audit.Writer
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, writer *audit.Writer) *PGRepository {
	return &PGRepository{pool: pool, queries: NewQueries(pool), audit: writer}
}

// Get loads a listing.
func (r *PGRepository) Get(ctx context.Context, id int64) (Property, error) {
	return r.queries.Get(ctx, id)
}

// Search runs a listing search.
func (r *PGRepository) Search(ctx context.Context, f SearchFilters) ([]Property, int, error) {
	return r.queries.Search(ctx, f)
}

// IncrementViews bumps the view counter.
func (r *PGRepository) IncrementViews(ctx context.Context, id int64) error {
	return r.queries.IncrementViews(ctx, id)
}

// WithTx wraps callback in a read-committed transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			tx:          tx,
			Queries:     NewQueries(tx),
			audit:       r.audit,
			idempotency: shared.NewIdempotencyStore(tx),
		})
	})
}

type txRepo struct {
	*Queries
	tx          pgx.Tx
	audit       *audit.Writer
	idempotency *shared.IdempotencyStore
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return t.idempotency.CheckAndInsert(ctx, key, idempotencyModule)
}

func (t *txRepo) RecordAudit(ctx context.Context, e audit.Entry) error {
	return t.audit.Record(ctx, t.tx, e)
}
