package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/usage"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// Service exposes profile reads and writes.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error)
}

// Profile bundles the user row with its usage counters.
type Profile struct {
	User  *models.User  `json:"user"`
	Usage *models.Usage `json:"usage"`
}

// UpdateProfileInput carries the mutable profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	Timezone    *string
	Currency    *enums.Currency
	ImageURL    *string
	IsOnboarded *bool
}

// ServiceParams groups dependencies for the users service.
type ServiceParams struct {
	UserRepo Repository
	Usage    usage.Service
}

type service struct {
	userRepo Repository
	usage    usage.Service
}

// NewService constructs a users service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.Usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage service required")
	}
	return &service{userRepo: params.UserRepo, usage: params.Usage}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	usageRow, err := s.usage.Get(ctx, userID)
	if err != nil {
		// A user without a counter row still has a profile.
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return nil, err
		}
	}
	return &Profile{User: user, Usage: usageRow}, nil
}

// UpdateProfile writes only the allow-listed profile columns. Identity fields
// (auth_id, email, password_hash) and counters never pass through here.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Timezone != nil {
		updates["timezone"] = strings.TrimSpace(*input.Timezone)
	}
	if input.Currency != nil {
		if !input.Currency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
		}
		updates["currency"] = *input.Currency
	}
	if input.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if input.IsOnboarded != nil {
		updates["is_onboarded"] = *input.IsOnboarded
	}

	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such user")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	return user, nil
}
