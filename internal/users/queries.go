package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// Queries runs user statements against a pool or a transaction.
type Queries struct {
	q db.Querier
}

// NewQueries binds queries to q.
func NewQueries(q db.Querier) *Queries {
	return &Queries{q: q}
}

const selectUser = `
	SELECT u.id, u.email, u.password_hash, u.name, COALESCE(u.phone, ''), u.role, u.status,
	       u.email_verified, u.is_deleted, u.last_login_at, u.created_at, u.updated_at,
	       ap.user_id IS NOT NULL, COALESCE(ap.license_number, ''), COALESCE(ap.agency_name, ''),
	       COALESCE(ap.verified, FALSE), ap.verified_at,
	       lp.user_id IS NOT NULL, COALESCE(lp.company_name, ''),
	       COALESCE(lp.verified, FALSE), lp.verified_at
	FROM users u
	LEFT JOIN agent_profiles ap ON ap.user_id = u.id
	LEFT JOIN landlord_profiles lp ON lp.user_id = u.id`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var (
		u           User
		hasAgent    bool
		hasLandlord bool
		agent       AgentProfile
		landlord    LandlordProfile
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.Status,
		&u.EmailVerified, &u.IsDeleted, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
		&hasAgent, &agent.LicenseNumber, &agent.AgencyName, &agent.Verified, &agent.VerifiedAt,
		&hasLandlord, &landlord.CompanyName, &landlord.Verified, &landlord.VerifiedAt,
	)
	if err != nil {
		return User{}, err
	}
	if hasAgent {
		u.AgentProfile = &agent
	}
	if hasLandlord {
		u.LandlordProfile = &landlord
	}
	return u, nil
}

// Get loads a live user by id.
func (q *Queries) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(q.q.QueryRow(ctx, selectUser+` WHERE u.id = $1 AND u.is_deleted = FALSE`, id))
	if db.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail loads a live user by normalised email.
func (q *Queries) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(q.q.QueryRow(ctx, selectUser+` WHERE u.email = $1 AND u.is_deleted = FALSE`, shared.NormalizeEmail(email)))
	if db.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	return u, err
}

// Create inserts the account and, for agents and landlords, its profile row.
// Callers should run it inside a transaction.
func (q *Queries) Create(ctx context.Context, in NewUser) (int64, error) {
	var id int64
	err := q.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, phone, role, status, email_verified, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, FALSE, FALSE, NOW(), NOW())
		RETURNING id`,
		shared.NormalizeEmail(in.Email), in.PasswordHash, in.Name, in.Phone, in.Role, in.Status,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	switch in.Role {
	case shared.RoleAgent:
		_, err = q.q.Exec(ctx, `
			INSERT INTO agent_profiles (user_id, license_number, agency_name, verified)
			VALUES ($1, $2, NULLIF($3, ''), FALSE)`, id, in.LicenseNumber, in.AgencyName)
	case shared.RoleLandlord:
		_, err = q.q.Exec(ctx, `
			INSERT INTO landlord_profiles (user_id, company_name, verified)
			VALUES ($1, NULLIF($2, ''), FALSE)`, id, in.CompanyName)
	}
	if err != nil {
		return 0, fmt.Errorf("users: insert profile: %w", err)
	}
	return id, nil
}

// UpdateStatus sets the account status.
func (q *Queries) UpdateStatus(ctx context.Context, id int64, status Status) error {
	return q.execOne(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, status)
}

// UpdateRole sets the account role.
func (q *Queries) UpdateRole(ctx context.Context, id int64, role shared.Role) error {
	return q.execOne(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id, role)
}

// MarkEmailVerified flags the email address as verified.
func (q *Queries) MarkEmailVerified(ctx context.Context, id int64) error {
	return q.execOne(ctx, `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1 AND is_deleted = FALSE`, id)
}

// VerifyProfile marks whichever agent or landlord profile exists as verified.
func (q *Queries) VerifyProfile(ctx context.Context, id int64, at time.Time) error {
	if _, err := q.q.Exec(ctx, `UPDATE agent_profiles SET verified = TRUE, verified_at = $2 WHERE user_id = $1`, id, at); err != nil {
		return err
	}
	_, err := q.q.Exec(ctx, `UPDATE landlord_profiles SET verified = TRUE, verified_at = $2 WHERE user_id = $1`, id, at)
	return err
}

// TouchLastLogin records a successful sign-in.
func (q *Queries) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.q.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

func (q *Queries) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := q.q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of live users plus the total match count.
func (q *Queries) List(ctx context.Context, f ListFilters) ([]User, int, error) {
	where, args := buildListWhere(f)

	var total int
	if err := q.q.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argPos := len(args) + 1
	sql := fmt.Sprintf(`%s %s ORDER BY u.created_at DESC, u.id DESC LIMIT $%d OFFSET $%d`,
		selectUser, where, argPos, argPos+1)
	args = append(args, f.Page.Take(), f.Page.Skip())

	rows, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func buildListWhere(f ListFilters) (string, []any) {
	conditions := []string{"u.is_deleted = FALSE"}
	var args []any
	argPos := 1

	if f.Role != "" {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", argPos))
		args = append(args, f.Role)
		argPos++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("u.status = $%d", argPos))
		args = append(args, f.Status)
		argPos++
	}
	if term := shared.NormalizeSearch(f.Search); term != "" {
		conditions = append(conditions, fmt.Sprintf("(u.email ILIKE $%d OR u.name ILIKE $%d)", argPos, argPos))
		args = append(args, shared.ContainsPattern(term))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
