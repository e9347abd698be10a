// Package audit records administrative mutations and serves the admin audit log.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

// ErrInvalidEntry is returned for entries missing required fields.
var ErrInvalidEntry = errors.New("audit: invalid entry")

// Writer appends audit records inside the caller's transaction.
type Writer struct {
	now       func() time.Time
	entropyMu sync.Mutex
	entropy   io.Reader
}

// NewWriter constructs a Writer.
func NewWriter() *Writer {
	return &Writer{
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Record inserts one audit row using q, which should be the mutation's transaction.
// An error must abort that transaction.
func (w *Writer) Record(ctx context.Context, q db.Querier, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	if e.Provenance.IsZero() {
		e.Provenance = ProvenanceFromContext(ctx)
	}
	oldValues, err := snapshot(e.OldValues)
	if err != nil {
		return fmt.Errorf("audit: encode old values: %w", err)
	}
	newValues, err := snapshot(e.NewValues)
	if err != nil {
		return fmt.Errorf("audit: encode new values: %w", err)
	}

	now := w.now().UTC()
	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (
			event_id, actor_id, action, entity_type, entity_id, target_user_id,
			old_values, new_values, ip_address, user_agent, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12)`,
		w.eventID(now), e.ActorID, string(e.Action), string(e.EntityType), e.EntityID, e.TargetUserID,
		oldValues, newValues, e.Provenance.IPAddress, e.Provenance.UserAgent, e.Provenance.RequestID, now,
	)
	if err != nil {
		return fmt.Errorf("audit: insert %s %s/%d: %w", e.Action, e.EntityType, e.EntityID, err)
	}
	return nil
}

func (w *Writer) eventID(at time.Time) string {
	w.entropyMu.Lock()
	defer w.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), w.entropy).String()
}

func validate(e Entry) error {
	switch {
	case e.ActorID <= 0:
		return fmt.Errorf("%w: actor id is required", ErrInvalidEntry)
	case e.Action == "":
		return fmt.Errorf("%w: action is required", ErrInvalidEntry)
	case e.EntityType == "":
		return fmt.Errorf("%w: entity type is required", ErrInvalidEntry)
	case e.EntityID <= 0:
		return fmt.Errorf("%w: entity id is required", ErrInvalidEntry)
	}
	return nil
}

func snapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil, err
	}
	return b, nil
}
