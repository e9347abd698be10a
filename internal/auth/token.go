package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
	"github.com/propertyhub/propertyhub/internal/shared"
)

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrInvalidToken covers malformed, forged, expired and mis-typed tokens alike.
var ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", httpx.ErrUnauthorized)

// TokenConfig carries the signing key and lifetimes.
type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the token payload.
type Claims struct {
	Email string      `json:"email"`
	Role  shared.Role `json:"role"`
	Type  TokenType   `json:"typ"`
	jwt.RegisteredClaims
}

// Identity converts the claims into a request identity.
func (c *Claims) Identity() (shared.Identity, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return shared.Identity{}, ErrInvalidToken
	}
	return shared.Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// TokenPair is the result of a sign-in or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RefreshID        string
}

// TokenService issues and verifies signed tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates the configuration and constructs a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: token secret must be provided")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "propertyhub"
	}
	return &TokenService{
		secret:     []byte(secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// IssueAccessToken signs a short-lived access token.
func (s *TokenService) IssueAccessToken(id shared.Identity) (string, error) {
	token, _, err := s.issue(id, TokenAccess, s.accessTTL)
	return token, err
}

// IssueRefreshToken signs a long-lived refresh token.
func (s *TokenService) IssueRefreshToken(id shared.Identity) (string, error) {
	token, _, err := s.issue(id, TokenRefresh, s.refreshTTL)
	return token, err
}

// IssuePair signs both tokens for the identity.
func (s *TokenService) IssuePair(id shared.Identity) (TokenPair, error) {
	access, accessClaims, err := s.issue(id, TokenAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshClaims, err := s.issue(id, TokenRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		RefreshID:        refreshClaims.ID,
	}, nil
}

func (s *TokenService) issue(id shared.Identity, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	if id.UserID <= 0 {
		return "", nil, errors.New("auth: principal id is required")
	}
	now := s.now().UTC()
	claims := &Claims{
		Email: id.Email,
		Role:  id.Role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, issuer and expiry. Every failure is ErrInvalidToken.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenAccess && claims.Type != TokenRefresh {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Identity(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccessToken rejects anything but a valid access token.
func (s *TokenService) VerifyAccessToken(raw string) (*Claims, error) {
	return s.verifyType(raw, TokenAccess)
}

// VerifyRefreshToken rejects anything but a valid refresh token.
func (s *TokenService) VerifyRefreshToken(raw string) (*Claims, error) {
	return s.verifyType(raw, TokenRefresh)
}

func (s *TokenService) verifyType(raw string, want TokenType) (*Claims, error) {
	claims, err := s.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RemainingLifetime reports how long the claims stay valid.
func (s *TokenService) RemainingLifetime(c *Claims) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(s.now())
}
