package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"influx_events/internal/config"
	"influx_events/internal/models"
)

// mockAuthRepo is a lightweight in-test mock for repository.Authorization.
type mockAuthRepo struct {
	CreateFn        func(username, hash string) (int, error)
	GetByUsernameFn func(username string) (*models.User, error)

	createCalls []struct {
		username string
		hash     string
	}
	getCalls []string
}

func (m *mockAuthRepo) Create(_ context.Context, username, hash string) (int, error) {
	m.createCalls = append(m.createCalls, struct {
		username string
		hash     string
	}{username: username, hash: hash})
	return m.CreateFn(username, hash)
}

func (m *mockAuthRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.getCalls = append(m.getCalls, username)
	return m.GetByUsernameFn(username)
}

var testSigningKey = strings.Repeat("s", config.MinSigningKeyLen)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{Enabled: true, SigningKey: testSigningKey, TokenTTL: 15 * time.Minute}
}

func newTestAuth(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, testAuthConfig())
}

// operator returns a repo that knows a single user with the given password.
func operator(t *testing.T, id int, name, password string) *mockAuthRepo {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	return &mockAuthRepo{
		GetByUsernameFn: func(username string) (*models.User, error) {
			if username != name {
				return nil, nil
			}
			return &models.User{ID: id, Username: name, PasswordHash: hash}, nil
		},
	}
}

func signClaims(t *testing.T, key []byte, c *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func validClaims(now time.Time, userID int) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
}

// --- SignUp tests ---

func TestAuthService_SignUp_SuccessHashesPasswordAndCallsRepo(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (int, error) {
			return 42, nil
		},
	}
	svc := newTestAuth(mock)

	id, err := svc.SignUp(context.Background(), "ops", "s3cr3t")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}

	if len(mock.createCalls) != 1 {
		t.Fatalf("expected 1 Create call, got %d", len(mock.createCalls))
	}
	call := mock.createCalls[0]
	if call.username != "ops" {
		t.Errorf("expected username 'ops', got %q", call.username)
	}
	if call.hash == "s3cr3t" {
		t.Errorf("expected hashed password not equal to raw password")
	}
	if err := verifyPassword(call.hash, "s3cr3t"); err != nil {
		t.Errorf("stored hash does not verify with the password it was made from: %v", err)
	}
}

func TestAuthService_SignUp_Rejected(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	cases := []struct {
		name     string
		cfg      config.AuthConfig
		ctx      context.Context
		password string
		want     error
	}{
		{"empty password", testAuthConfig(), context.Background(), "   ", ErrEmptyPassword},
		{"auth disabled", config.AuthConfig{SigningKey: testSigningKey}, context.Background(), "pw", ErrAuthDisabled},
		{"no signing key", config.AuthConfig{Enabled: true}, context.Background(), "pw", ErrAuthDisabled},
		{"request cancelled", testAuthConfig(), cancelled, "pw", context.Canceled},
		{"request deadline passed", testAuthConfig(), expired, "pw", context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockAuthRepo{
				CreateFn: func(username, hash string) (int, error) {
					t.Fatal("Create must not be called")
					return 0, nil
				},
			}
			svc := NewAuthService(mock, tc.cfg)

			_, err := svc.SignUp(tc.ctx, "ops", tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if len(mock.createCalls) != 0 {
				t.Fatalf("expected no Create calls, got %d", len(mock.createCalls))
			}
		})
	}
}

func TestAuthService_SignUp_RepoError(t *testing.T) {
	mock := &mockAuthRepo{
		CreateFn: func(username, hash string) (int, error) {
			return 0, errors.New("db down")
		},
	}
	svc := newTestAuth(mock)

	_, err := svc.SignUp(context.Background(), "carl", "pass123")
	if err == nil {
		t.Fatalf("expected repo error, got nil")
	}
}

// --- GenerateToken tests ---

func TestAuthService_GenerateToken_CarriesConfiguredClaims(t *testing.T) {
	mock := operator(t, 7, "diana", "letmein")
	svc := newTestAuth(mock)
	issued := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateToken(context.Background(), "diana", "letmein")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	uid, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if uid != 7 {
		t.Fatalf("expected user id 7 from token, got %d", uid)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.Subject != "diana" || claims.Issuer != tokenIssuer {
		t.Fatalf("unexpected subject/issuer: %q/%q", claims.Subject, claims.Issuer)
	}
	if got := claims.ExpiresAt.Time.Sub(issued); got != 15*time.Minute {
		t.Fatalf("token lifetime = %v, want the configured 15m", got)
	}

	// the same token is refused once the configured lifetime has passed
	svc.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken after expiry, got %v", err)
	}
}

func TestAuthService_GenerateToken_Errors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name     string
		ctx      context.Context
		user     string
		password string
		want     error
	}{
		{"unknown user", context.Background(), "ghost", "pw", ErrUserNotFound},
		{"wrong password", context.Background(), "eve", "wrong", ErrInvalidPassword},
		{"request cancelled", cancelled, "eve", "correct", context.Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestAuth(operator(t, 1, "eve", "correct"))
			_, err := svc.GenerateToken(tc.ctx, tc.user, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_GenerateToken_RepoError(t *testing.T) {
	mock := &mockAuthRepo{
		GetByUsernameFn: func(username string) (*models.User, error) {
			return nil, errors.New("query failed")
		},
	}
	svc := newTestAuth(mock)

	_, err := svc.GenerateToken(context.Background(), "john", "pw")
	if err == nil {
		t.Fatalf("expected repo error, got nil")
	}
}

func TestAuthService_GenerateToken_Disabled(t *testing.T) {
	mock := &mockAuthRepo{
		GetByUsernameFn: func(username string) (*models.User, error) {
			t.Fatal("GetByUsername must not be called")
			return nil, nil
		},
	}
	svc := NewAuthService(mock, config.AuthConfig{Enabled: false, SigningKey: testSigningKey})

	if _, err := svc.GenerateToken(context.Background(), "ops", "pw"); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("want ErrAuthDisabled, got %v", err)
	}
}

// --- ParseToken tests ---

func TestAuthService_ParseToken_Success(t *testing.T) {
	svc := newTestAuth(&mockAuthRepo{})
	token, err := svc.issueToken(99, "ops")
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}

	uid, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if uid != 99 {
		t.Fatalf("expected user id 99, got %d", uid)
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	now := time.Now()
	key := []byte(testSigningKey)

	wrongIssuer := validClaims(now, 3)
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := validClaims(now, 3)
	wrongAudience.Audience = jwt.ClaimStrings{"billing-api"}
	noExpiry := validClaims(now, 3)
	noExpiry.ExpiresAt = nil
	expired := validClaims(now.Add(-2*time.Hour), 3)

	cases := map[string]string{
		"malformed":      "not-a-jwt",
		"other key":      signClaims(t, []byte(strings.Repeat("x", 32)), validClaims(now, 3)),
		"wrong issuer":   signClaims(t, key, wrongIssuer),
		"wrong audience": signClaims(t, key, wrongAudience),
		"missing expiry": signClaims(t, key, noExpiry),
		"expired":        signClaims(t, key, expired),
	}
	svc := newTestAuth(&mockAuthRepo{})
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestAuthService_ParseToken_DisabledRejectsValidToken(t *testing.T) {
	token := signClaims(t, []byte(testSigningKey), validClaims(time.Now(), 5))
	svc := NewAuthService(&mockAuthRepo{}, config.AuthConfig{SigningKey: testSigningKey})

	if _, err := svc.ParseToken(token); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("want ErrAuthDisabled, got %v", err)
	}
}

func TestAuthService_ParseToken_UnexpectedAlg(t *testing.T) {
	svc := newTestAuth(&mockAuthRepo{})

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	tk := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims(time.Now(), 12))
	tokenStr, err := tk.SignedString(privateKey)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := svc.ParseToken(tokenStr); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for RS256 token, got %v", err)
	}
}
