package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/identity"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	pkgauth "github.com/tracksubs/tracksubs-backend/pkg/auth"
	"github.com/tracksubs/tracksubs-backend/pkg/auth/session"
	"github.com/tracksubs/tracksubs-backend/pkg/config"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-test-secret-test-secret",
		Issuer:                 "tracksubs-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

type fakeResolver struct {
	users map[string]*models.User // by email
}

func (f *fakeResolver) Resolve(ctx context.Context, input identity.ResolveInput) (*models.User, error) {
	if existing, ok := f.users[input.Email]; ok {
		return existing, nil
	}
	user := &models.User{
		ID:           uuid.New(),
		AuthID:       input.AuthID,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Currency:     input.Currency,
	}
	f.users[input.Email] = user
	return user, nil
}

type fakeUserRepo struct {
	resolver *fakeResolver
}

func (f *fakeUserRepo) WithTx(tx *gorm.DB) users.Repository { return f }

func (f *fakeUserRepo) lookup(match func(*models.User) bool) (*models.User, error) {
	for _, user := range f.resolver.users {
		if match(user) {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.lookup(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	return f.lookup(func(u *models.User) bool { return u.AuthID == authID })
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.lookup(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (f *fakeUserRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

type fakeSessions struct {
	tokens map[string]string // accessID -> refresh token
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + uuid.NewString()
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token, _ := f.Generate(ctx, newAccessID)
	return newAccessID, token, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

func newAuthService(t *testing.T) (Service, *fakeResolver, *fakeSessions) {
	t.Helper()
	resolver := &fakeResolver{users: map[string]*models.User{}}
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		Resolver: resolver,
		UserRepo: &fakeUserRepo{resolver: resolver},
		Sessions: sessions,
		JWT:      testJWTConfig(),
		Password: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, resolver, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, resolver, _ := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{
		Email:     "  Ada@Example.com ",
		Password:  "correct horse battery",
		FirstName: "Ada",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	user := resolver.users["ada@example.com"]
	if user == nil {
		t.Fatal("user not provisioned under normalized email")
	}
	if !strings.HasPrefix(user.AuthID, "local:") {
		t.Fatalf("auth id should be locally generated, got %q", user.AuthID)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Fatal("password stored in the clear")
	}
	if ok, _ := security.VerifyPassword("correct horse battery", user.PasswordHash); !ok {
		t.Fatal("stored hash does not verify")
	}

	login, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatal("token minted for wrong user")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Fatal("token should carry a future expiry")
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "longenough"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, attempt := range []LoginInput{
		{Email: "bob@example.com", Password: "wrongpassword"},
		{Email: "nobody@example.com", Password: "longenough"},
	} {
		_, err := svc.Login(ctx, attempt)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %v, got %v", attempt.Email, err)
		}
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "r@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, result.AccessToken, result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == result.AccessToken || refreshed.RefreshToken == result.RefreshToken {
		t.Fatal("refresh must issue a new pair")
	}

	// The old pair is burned.
	_, err = svc.Refresh(ctx, result.AccessToken, result.RefreshToken)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for replayed refresh, got %v", err)
	}

	if len(sessions.tokens) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions.tokens))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, RegisterInput{Email: "l@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, result.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatal("session not revoked")
	}

	_, err = svc.Refresh(ctx, result.AccessToken, result.RefreshToken)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}
