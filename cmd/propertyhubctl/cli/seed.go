package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/propertyhub/propertyhub/internal/platform/db"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Email    string
	Name     string
	Password string
}

func (s AdminSeed) validate() error {
	if !strings.Contains(s.Email, "@") {
		return errors.New("seed: a valid email is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("seed: name is required")
	}
	if len(s.Password) < 8 {
		return errors.New("seed: password must be at least 8 characters")
	}
	return nil
}

// SeedAdmin creates an active, verified administrator unless the email is
// already registered. It reports whether an account was created.
func SeedAdmin(ctx context.Context, q db.Querier, seed AdminSeed) (bool, error) {
	if err := seed.validate(); err != nil {
		return false, err
	}
	queries := users.NewQueries(q)
	if _, err := queries.GetByEmail(ctx, seed.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, users.ErrNotFound) {
		return false, fmt.Errorf("seed: lookup admin: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("seed: hash password: %w", err)
	}
	id, err := queries.Create(ctx, users.NewUser{
		Email:        seed.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(seed.Name),
		Role:         shared.RoleAdmin,
		Status:       users.StatusActive,
	})
	if err != nil {
		return false, fmt.Errorf("seed: create admin: %w", err)
	}
	if err := queries.MarkEmailVerified(ctx, id); err != nil {
		return false, fmt.Errorf("seed: verify admin email: %w", err)
	}
	return true, nil
}
