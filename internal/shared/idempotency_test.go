package shared

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/propertyhub/internal/platform/db/dbtest"
	"github.com/propertyhub/propertyhub/internal/platform/httpx"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(rec *dbtest.Recorder) *IdempotencyStore {
	s := NewIdempotencyStore(rec)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestCheckAndInsertClaimsKey(t *testing.T) {
	rec := &dbtest.Recorder{}
	require.NoError(t, newStore(rec).CheckAndInsert(context.Background(), " abc-123 ", "properties.create"))

	call, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, []any{"abc-123", "properties.create", fixedNow}, call.Args)
}

func TestCheckAndInsertMapsUniqueViolation(t *testing.T) {
	rec := &dbtest.Recorder{ExecErr: &pgconn.PgError{Code: "23505"}}
	err := newStore(rec).CheckAndInsert(context.Background(), "abc", "properties.create")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCheckAndInsertValidatesKey(t *testing.T) {
	rec := &dbtest.Recorder{}
	s := newStore(rec)
	assert.ErrorIs(t, s.CheckAndInsert(context.Background(), "  ", "m"), httpx.ErrValidation)
	assert.ErrorIs(t, s.CheckAndInsert(context.Background(), strings.Repeat("k", MaxIdempotencyKeyLength+1), "m"), httpx.ErrValidation)
	assert.Error(t, s.CheckAndInsert(context.Background(), "k", ""))
	assert.Empty(t, rec.Calls)
}

func TestCleanupUsesRetentionCutoff(t *testing.T) {
	rec := &dbtest.Recorder{}
	n, err := newStore(rec).Cleanup(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	call, _ := rec.Last()
	assert.Equal(t, []any{fixedNow.Add(-72 * time.Hour)}, call.Args)
}
