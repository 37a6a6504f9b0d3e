package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"influx_events/internal/config"
	"influx_events/internal/repository"
)

const (
	defaultTokenTTL = time.Hour

	// Tokens are only accepted by the event API that issued them.
	tokenIssuer   = "influx_events"
	tokenAudience = "events-api"
)

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmptyPassword   = errors.New("password is empty")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrAuthDisabled    = errors.New("operator accounts are disabled")
)

// AuthService handles operator accounts and the bearer tokens that guard /api/v1.
type AuthService struct {
	authRepo   repository.Authorization
	enabled    bool
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewAuthService builds the service from the auth section. With auth disabled
// no tokens are issued and ParseToken rejects everything.
func NewAuthService(repo repository.Authorization, cfg config.AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		authRepo:   repo,
		enabled:    cfg.Enabled && cfg.SigningKey != "",
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   ttl,
		now:        time.Now,
	}
}

// SignUp hashes password and creates a new operator.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	if !s.enabled {
		return 0, ErrAuthDisabled
	}
	if strings.TrimSpace(password) == "" {
		return 0, ErrEmptyPassword
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sign up %q: %w", username, err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.authRepo.Create(ctx, username, hash)
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// GenerateToken validates credentials and returns a signed token.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	if !s.enabled {
		return "", ErrAuthDisabled
	}
	u, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("sign in %q: %w", username, err)
	}

	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return s.issueToken(u.ID, u.Username)
}

// ParseToken checks signature, expiry, issuer and audience and returns the user id.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	if !s.enabled {
		return 0, ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.UserID, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) issueToken(userID int, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	})
	return token.SignedString(s.signingKey)
}
