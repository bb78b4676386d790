package identity

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/usage"
	"github.com/tracksubs/tracksubs-backend/internal/users"
	dbpkg "github.com/tracksubs/tracksubs-backend/pkg/db"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/outbox"
)

// Resolver maps an external authentication identifier to the internal user
// row, creating the user and its usage counters on first access.
type Resolver interface {
	Resolve(ctx context.Context, input ResolveInput) (*models.User, error)
}

// ResolveInput carries the identity attributes available at token time.
type ResolveInput struct {
	AuthID       string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Currency     enums.Currency
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the identity resolver. Outbox is
// optional; when set, provisioning emits a user.registered event.
type ServiceParams struct {
	UserRepo          users.Repository
	UsageRepo         usage.Repository
	TransactionRunner txRunner
	Outbox            eventEmitter
	Logger            *logger.Logger
}

type service struct {
	userRepo  users.Repository
	usageRepo usage.Repository
	txRunner  txRunner
	outbox    eventEmitter
	logg      *logger.Logger
}

// NewService constructs an identity resolver.
func NewService(params ServiceParams) (Resolver, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.UsageRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		userRepo:  params.UserRepo,
		usageRepo: params.UsageRepo,
		txRunner:  params.TransactionRunner,
		outbox:    params.Outbox,
		logg:      params.Logger,
	}, nil
}

// Resolve returns the user for the external auth identifier. Unknown
// identifiers get a user row plus a zeroed usage row in one transaction, so a
// user never exists without counters.
func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.User, error) {
	authID := strings.TrimSpace(input.AuthID)
	if authID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth id is required")
	}

	user, err := s.userRepo.GetByAuthID(ctx, authID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user by auth id")
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required for first access")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	created := &models.User{
		AuthID:       authID,
		Email:        email,
		PasswordHash: input.PasswordHash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Currency:     currency,
	}

	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txUsers := s.userRepo.WithTx(tx)
		if err := txUsers.Create(ctx, created); err != nil {
			return err
		}
		usageRow := &models.Usage{UserID: created.ID}
		if err := s.usageRepo.WithTx(tx).Create(ctx, usageRow); err != nil {
			return err
		}
		if err := txUsers.Update(ctx, created.ID, map[string]any{"usage_id": usageRow.ID}); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: created.ID},
			Data: map[string]any{
				"user_id": created.ID.String(),
				"email":   created.Email,
			},
			Version: 1,
		})
	})
	if txErr != nil {
		// A concurrent first access can win the insert; fall back to the row it created.
		if dbpkg.IsUniqueViolation(txErr, "") {
			user, err := s.userRepo.GetByAuthID(ctx, authID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user after insert race")
			}
			return user, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "provision user")
	}

	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "user_id", created.ID.String())
		s.logg.Info(logCtx, "provisioned user on first access")
	}
	return s.reload(ctx, authID, created)
}

func (s *service) reload(ctx context.Context, authID string, fallback *models.User) (*models.User, error) {
	user, err := s.userRepo.GetByAuthID(ctx, authID)
	if err != nil {
		return fallback, nil
	}
	return user, nil
}
