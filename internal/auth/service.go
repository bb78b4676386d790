package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/identity"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	pkgauth "github.com/tracksubs/tracksubs-backend/pkg/auth"
	"github.com/tracksubs/tracksubs-backend/pkg/auth/session"
	"github.com/tracksubs/tracksubs-backend/pkg/config"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/security"
)

const minPasswordLength = 8

// Service issues and revokes credentials for self-managed accounts.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Currency  enums.Currency
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult bundles the user with a fresh token pair.
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	Resolver identity.Resolver
	UserRepo users.Repository
	Sessions sessionManager
	JWT      config.JWTConfig
	Password config.PasswordConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	resolver identity.Resolver
	userRepo users.Repository
	sessions sessionManager
	jwt      config.JWTConfig
	password config.PasswordConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs an auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	if strings.TrimSpace(params.JWT.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "jwt secret required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		resolver: params.Resolver,
		userRepo: params.UserRepo,
		sessions: params.Sessions,
		jwt:      params.JWT,
		password: params.Password,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Register creates an account and returns a logged-in token pair. The auth
// identifier is generated here; provisioning of the user and its counters
// happens in the identity resolver.
func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing email")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.resolver.Resolve(ctx, identity.ResolveInput{
		AuthID:       "local:" + uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Currency:     input.Currency,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Info(logCtx, "user registered")
	}
	return result, nil
}

// Login verifies credentials and returns a fresh token pair. Lookup and
// verification failures collapse into one unauthorized error.
func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user by email")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalidCredentials()
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the session behind an access token. The access token may be
// expired; its signature still has to verify.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &AuthResult{User: user, AccessToken: token, RefreshToken: newRefresh}, nil
}

// Logout revokes the session behind an access token. Expired tokens still
// log out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*AuthResult, error) {
	accessID := session.NewAccessID()
	token, err := pkgauth.MintAccessToken(s.jwt, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	return &AuthResult{User: user, AccessToken: token, RefreshToken: refresh}, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}
