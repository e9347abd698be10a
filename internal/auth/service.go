package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
	"github.com/propertyhub/propertyhub/internal/users"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", httpx.ErrUnauthorized)
	// ErrAccountDisabled is returned for suspended, inactive or deleted accounts.
	ErrAccountDisabled = fmt.Errorf("%w: account is not active", httpx.ErrUnauthorized)
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", httpx.ErrConflict)
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Name          string `json:"name" validate:"required,max=120"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	Role          string `json:"role" validate:"required,oneof=buyer tenant agent landlord"`
	LicenseNumber string `json:"licenseNumber" validate:"required_if=Role agent,max=64"`
	AgencyName    string `json:"agencyName" validate:"max=160"`
	CompanyName   string `json:"companyName" validate:"max=160"`
}

// LoginInput is the sign-in payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service implements account sign-up, sign-in and token rotation.
type Service struct {
	accounts    Accounts
	tokens      *TokenService
	revocations RevocationStore
	logger      *slog.Logger
	cost        int
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService builds Service instance.
func NewService(accounts Accounts, tokens *TokenService, revocations RevocationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		cost:        bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// Register creates an account and signs it in. Agents and landlords start
// pending verification until an administrator approves them.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, TokenPair, error) {
	in.Email = shared.NormalizeEmail(in.Email)
	if err := httpx.Validate(in); err != nil {
		return users.User{}, TokenPair{}, err
	}
	role, ok := shared.ParseRole(in.Role)
	if !ok || role == shared.RoleAdmin {
		return users.User{}, TokenPair{}, httpx.Validation("role %q cannot self-register", in.Role)
	}

	status := users.StatusActive
	if role == shared.RoleAgent || role == shared.RoleLandlord {
		status = users.StatusPendingVerification
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return users.User{}, TokenPair{}, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.accounts.Create(ctx, users.NewUser{
		Email:         in.Email,
		PasswordHash:  string(hash),
		Name:          in.Name,
		Phone:         in.Phone,
		Role:          role,
		Status:        status,
		LicenseNumber: in.LicenseNumber,
		AgencyName:    in.AgencyName,
		CompanyName:   in.CompanyName,
	})
	if err != nil {
		return users.User{}, TokenPair{}, err
	}

	pair, err := s.tokens.IssuePair(user.Identity())
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	s.logger.Info("account registered", slog.Int64("user_id", user.ID), slog.String("role", string(role)))
	return user, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (users.User, TokenPair, error) {
	if err := httpx.Validate(in); err != nil {
		return users.User{}, TokenPair{}, err
	}
	user, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.timingHash(), []byte(in.Password))
			return users.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return users.User{}, TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return users.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !user.CanSignIn() {
		return users.User{}, TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.tokens.IssuePair(user.Identity())
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	if err := s.accounts.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("record last login failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return user, pair, nil
}

// Refresh rotates a refresh token. Each refresh token can be used once.
func (s *Service) Refresh(ctx context.Context, raw string) (users.User, TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(raw)
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	fresh, err := s.revocations.Consume(ctx, claims.ID, s.tokens.RemainingLifetime(claims))
	if err != nil {
		return users.User{}, TokenPair{}, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	if !fresh {
		s.logger.Warn("refresh token reuse", slog.String("jti", claims.ID), slog.String("sub", claims.Subject))
		return users.User{}, TokenPair{}, ErrInvalidToken
	}

	id, err := claims.Identity()
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	user, err := s.accounts.Get(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, TokenPair{}, ErrInvalidToken
		}
		return users.User{}, TokenPair{}, err
	}
	if !user.CanSignIn() {
		return users.User{}, TokenPair{}, ErrAccountDisabled
	}

	// Role and email come from the store so admin changes apply on rotation.
	pair, err := s.tokens.IssuePair(user.Identity())
	if err != nil {
		return users.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Logout revokes the presented refresh token. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.VerifyRefreshToken(raw)
	if err != nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, s.tokens.RemainingLifetime(claims))
}

// Me returns the current account.
func (s *Service) Me(ctx context.Context, id shared.Identity) (users.User, error) {
	user, err := s.accounts.Get(ctx, id.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return users.User{}, ErrInvalidToken
	}
	return user, err
}

func (s *Service) timingHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("propertyhub-timing-guard"), s.cost)
	})
	return s.dummyHash
}
