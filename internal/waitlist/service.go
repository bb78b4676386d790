package waitlist

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/pkg/db"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
)

// Service manages waitlist signups.
type Service interface {
	Add(ctx context.Context, email string) (*models.WaitlistEntry, error)
}

// ServiceParams groups dependencies for the waitlist service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService constructs a waitlist service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "waitlist repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

// Add records a signup. A repeated email reports a conflict instead of a
// second row.
func (s *service) Add(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}

	entry := &models.WaitlistEntry{ID: uuid.New(), Email: email}
	if err := s.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "waitlist_email_unique") || db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already on the waitlist").
				WithDetails(map[string]any{"reason": "ALREADY_ADDED"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add waitlist entry")
	}

	logCtx := s.logg.WithField(ctx, "email", email)
	s.logg.Info(logCtx, "waitlist signup recorded")
	return entry, nil
}
