package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// Service exposes the read-only provider catalog.
type Service interface {
	List(ctx context.Context) ([]models.Service, error)
	GetByKey(ctx context.Context, key string) (*models.Service, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService constructs a catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repo required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Service, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	return rows, nil
}

func (s *service) GetByKey(ctx context.Context, key string) (*models.Service, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service key is required")
	}
	svc, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such service")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
	}
	return svc, nil
}
