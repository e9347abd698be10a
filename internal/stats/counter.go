package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

var metricSQL = map[Metric]string{
	UsersTotal:            `SELECT COUNT(*) FROM users WHERE is_deleted = FALSE`,
	UsersPending:          `SELECT COUNT(*) FROM users WHERE is_deleted = FALSE AND status = 'pending_verification'`,
	UsersActive:           `SELECT COUNT(*) FROM users WHERE is_deleted = FALSE AND status = 'active'`,
	UsersSuspended:        `SELECT COUNT(*) FROM users WHERE is_deleted = FALSE AND status = 'suspended'`,
	PropertiesTotal:       `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE`,
	PropertiesPending:     `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE AND status = 'pending_approval'`,
	PropertiesApproved:    `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE AND status = 'approved'`,
	PropertiesRejected:    `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE AND status = 'rejected'`,
	PropertiesUnavailable: `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE AND status = 'unavailable'`,
	PropertiesRevision:    `SELECT COUNT(*) FROM properties WHERE is_deleted = FALSE AND approval_status = 'revision_requested'`,
	InquiriesTotal:        `SELECT COUNT(*) FROM inquiries`,
	InquiriesNew:          `SELECT COUNT(*) FROM inquiries WHERE status = 'new'`,
}

// PGCounter evaluates metrics with COUNT queries.
type PGCounter struct {
	q db.Querier
}

// NewCounter binds the counter to q.
func NewCounter(q db.Querier) *PGCounter {
	return &PGCounter{q: q}
}

// Count runs the query of metric m.
func (c *PGCounter) Count(ctx context.Context, m Metric, now time.Time) (int64, error) {
	var (
		sql  string
		args []any
	)
	switch m {
	case PropertiesFeatured:
		sql = `SELECT COUNT(*) FROM featured_properties fp JOIN properties p ON p.id = fp.property_id
			WHERE p.is_deleted = FALSE AND fp.start_date <= $1 AND fp.end_date > $1`
		args = []any{now}
	case AuditEventsLast24h:
		sql = `SELECT COUNT(*) FROM audit_logs WHERE created_at >= $1`
		args = []any{now.Add(-24 * time.Hour)}
	default:
		var ok bool
		if sql, ok = metricSQL[m]; !ok {
			return 0, fmt.Errorf("stats: unknown metric %q", m)
		}
	}
	var n int64
	if err := c.q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("stats: count %s: %w", m, err)
	}
	return n, nil
}
