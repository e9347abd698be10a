package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

// Queries runs notification statements against a pool or a transaction.
type Queries struct {
	q db.Querier
}

// NewQueries binds queries to q.
func NewQueries(q db.Querier) *Queries {
	return &Queries{q: q}
}

// Insert stores n and returns it with id and timestamp.
func (q *Queries) Insert(ctx context.Context, n Notification) (Notification, error) {
	err := q.q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, kind, title, message, entity_type, entity_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, FALSE, NOW())
		RETURNING id, created_at`,
		n.UserID, string(n.Kind), n.Title, n.Message, n.EntityType, n.EntityID,
	).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

// List returns one page of a principal's notifications, newest first, plus the total.
func (q *Queries) List(ctx context.Context, userID int64, f ListFilters) ([]Notification, int, error) {
	where := "WHERE user_id = $1"
	if f.UnreadOnly {
		where += " AND is_read = FALSE"
	}

	var total int
	if err := q.q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := fmt.Sprintf(`
		SELECT id, user_id, kind, title, message, COALESCE(entity_type, ''), entity_id, is_read, read_at, created_at
		FROM notifications %s
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, where)
	rows, err := q.q.Query(ctx, sql, userID, f.Page.Take(), f.Page.Skip())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.EntityType, &n.EntityID,
			&n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// UnreadCount counts unread notifications.
func (q *Queries) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := q.q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID).Scan(&n)
	return n, err
}

// MarkRead marks one of the principal's notifications as read. Marking an
// already read notification keeps its original read_at.
func (q *Queries) MarkRead(ctx context.Context, userID, id int64, at time.Time) error {
	tag, err := q.q.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the principal and returns how many changed.
func (q *Queries) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	tag, err := q.q.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE`, userID, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
