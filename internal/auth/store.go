package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/users"
)

// Accounts is the persistence port used by the service.
type Accounts interface {
	Get(ctx context.Context, id int64) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	Create(ctx context.Context, in users.NewUser) (users.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Store is the PostgreSQL implementation of Accounts.
type Store struct {
	pool    *pgxpool.Pool
	queries *users.Queries
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: users.NewQueries(pool)}
}

// Get loads a user by id.
func (s *Store) Get(ctx context.Context, id int64) (users.User, error) {
	return s.queries.Get(ctx, id)
}

// GetByEmail loads a user by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (users.User, error) {
	return s.queries.GetByEmail(ctx, email)
}

// Create inserts the user and profile in one transaction.
func (s *Store) Create(ctx context.Context, in users.NewUser) (users.User, error) {
	var id int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		id, err = users.NewQueries(tx).Create(ctx, in)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return users.User{}, ErrEmailTaken
		}
		return users.User{}, err
	}
	return s.queries.Get(ctx, id)
}

// TouchLastLogin records the sign-in time.
func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return s.queries.TouchLastLogin(ctx, id, at)
}
