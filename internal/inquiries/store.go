package inquiries

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propertyhub/propertyhub/internal/platform/db"
)

// PGStore stores inquiries in PostgreSQL.
type PGStore struct {
	q db.Querier
}

// NewStore constructs a PGStore.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{q: pool}
}

const selectInquiry = `
	SELECT id, property_id, sender_id, recipient_id, name, email, COALESCE(phone, ''), message, status, created_at, updated_at
	FROM inquiries`

type scanner interface {
	Scan(dest ...any) error
}

func scanInquiry(row scanner) (Inquiry, error) {
	var i Inquiry
	err := row.Scan(&i.ID, &i.PropertyID, &i.SenderID, &i.RecipientID, &i.Name, &i.Email, &i.Phone,
		&i.Message, &i.Status, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// Insert stores a new inquiry.
func (s *PGStore) Insert(ctx context.Context, i Inquiry) (Inquiry, error) {
	return scanInquiry(s.q.QueryRow(ctx, `
		INSERT INTO inquiries (property_id, sender_id, recipient_id, name, email, phone, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NOW(), NOW())
		RETURNING id, property_id, sender_id, recipient_id, name, email, COALESCE(phone, ''), message, status, created_at, updated_at`,
		i.PropertyID, i.SenderID, i.RecipientID, i.Name, i.Email, i.Phone, i.Message, string(i.Status)))
}

// Get loads an inquiry.
func (s *PGStore) Get(ctx context.Context, id int64) (Inquiry, error) {
	i, err := scanInquiry(s.q.QueryRow(ctx, selectInquiry+` WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Inquiry{}, ErrNotFound
	}
	return i, err
}

// SetStatus updates the status.
func (s *PGStore) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := s.q.Exec(ctx, `UPDATE inquiries SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReceived returns one page of the recipient's inquiries plus the total.
func (s *PGStore) ListReceived(ctx context.Context, recipientID int64, f ListFilters) ([]Inquiry, int, error) {
	conditions := []string{"recipient_id = $1"}
	args := []any{recipientID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.PropertyID > 0 {
		args = append(args, f.PropertyID)
		conditions = append(conditions, fmt.Sprintf("property_id = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM inquiries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	sql := fmt.Sprintf(`%s%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		selectInquiry, where, len(args)+1, len(args)+2)
	rows, err := s.q.Query(ctx, sql, append(args, f.Page.Take(), f.Page.Skip())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Inquiry
	for rows.Next() {
		i, err := scanInquiry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, i)
	}
	return out, total, rows.Err()
}
