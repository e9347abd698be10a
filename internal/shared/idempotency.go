package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
)

// MaxIdempotencyKeyLength bounds client-supplied Idempotency-Key headers.
const MaxIdempotencyKeyLength = 128

// ErrIdempotencyConflict indicates the key was already used for the same module.
var ErrIdempotencyConflict = fmt.Errorf("%w: idempotent request already processed", httpx.ErrConflict)

// IdempotencyStore records Idempotency-Key headers per module. Claims made on a
// transaction roll back with it, so a failed create can be retried with the same key.
type IdempotencyStore struct {
	q   db.Querier
	now func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(q db.Querier) *IdempotencyStore {
	return &IdempotencyStore{q: q, now: time.Now}
}

// CheckAndInsert claims key for module or returns ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return httpx.Validation("Idempotency-Key must not be blank")
	case len(key) > MaxIdempotencyKeyLength:
		return httpx.Validation("Idempotency-Key must be at most %d characters", MaxIdempotencyKeyLength)
	case module == "":
		return errors.New("idempotency module required")
	}
	_, err := s.q.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, s.now().UTC())
	if db.IsUniqueViolation(err) {
		return ErrIdempotencyConflict
	}
	return err
}

// Cleanup removes claims older than olderThan and returns how many were dropped.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
