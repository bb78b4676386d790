package usage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// Service exposes read access to usage counters. All writes happen through the
// registry and ledger transaction paths so the counters stay in lockstep with
// the rows they describe.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Usage, error)
}

type service struct {
	repo Repository
}

// NewService wires a usage service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	row, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "usage not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load usage")
	}
	return row, nil
}
