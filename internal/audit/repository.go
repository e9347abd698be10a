package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// PGRepository reads audit rows from PostgreSQL.
type PGRepository struct {
	q db.Querier
}

// NewRepository constructs a PGRepository.
func NewRepository(q db.Querier) *PGRepository {
	return &PGRepository{q: q}
}

const selectRecord = `
	SELECT a.id, a.event_id, a.actor_id, COALESCE(u.email, ''), a.action, a.entity_type, a.entity_id,
	       a.target_user_id, a.old_values, a.new_values, COALESCE(a.ip_address, ''),
	       COALESCE(a.user_agent, ''), COALESCE(a.request_id, ''), a.created_at
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.actor_id`

// List returns a page of records newest first plus the total match count.
// A zero limit returns every match.
func (r *PGRepository) List(ctx context.Context, f ListFilters) ([]Record, int, error) {
	where, args := buildWhere(f)

	var total int
	countSQL := `SELECT COUNT(*) FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id ` + where
	if err := r.q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := selectRecord + " " + where + " ORDER BY a.created_at DESC, a.event_id DESC"
	if f.Page.Limit > 0 {
		argPos := len(args) + 1
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, f.Page.Take(), f.Page.Skip())
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.ActorID, &rec.ActorEmail, &rec.Action, &rec.EntityType, &rec.EntityID,
			&rec.TargetUserID, &rec.OldValues, &rec.NewValues, &rec.IPAddress,
			&rec.UserAgent, &rec.RequestID, &rec.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func buildWhere(f ListFilters) (string, []any) {
	var conditions []string
	var args []any
	argPos := 1

	if f.Action != "" {
		conditions = append(conditions, fmt.Sprintf("a.action = $%d", argPos))
		args = append(args, string(f.Action))
		argPos++
	}
	if f.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("a.entity_type = $%d", argPos))
		args = append(args, string(f.EntityType))
		argPos++
	}
	if f.ActorID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.actor_id = $%d", argPos))
		args = append(args, f.ActorID)
		argPos++
	}
	if f.EntityID > 0 {
		conditions = append(conditions, fmt.Sprintf("a.entity_id = $%d", argPos))
		args = append(args, f.EntityID)
		argPos++
	}
	if !f.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("a.created_at >= $%d", argPos))
		args = append(args, f.From)
		argPos++
	}
	if !f.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("a.created_at < $%d", argPos))
		args = append(args, f.To)
		argPos++
	}
	if term := shared.NormalizeSearch(f.Search); term != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(a.action ILIKE $%d OR a.entity_type ILIKE $%d OR a.entity_id::text ILIKE $%d OR u.email ILIKE $%d)",
			argPos, argPos, argPos, argPos,
		))
		args = append(args, shared.ContainsPattern(term))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
