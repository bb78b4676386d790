package paymentmethods

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// Service manages the per-user payment method catalog. Deleting a payment
// method never touches ledger rows; their payment_method_id is nulled by the
// schema and the snapshot columns keep their values.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	Create(ctx context.Context, userID uuid.UUID, title string) (*models.PaymentMethod, error)
	Rename(ctx context.Context, userID, id uuid.UUID, title string) (*models.PaymentMethod, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ServiceParams groups dependencies for the payment methods service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService constructs a payment methods service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repo required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, title string) (*models.PaymentMethod, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	pm := &models.PaymentMethod{
		UserID: userID,
		Title:  title,
	}
	if err := s.repo.Create(ctx, pm); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment method")
	}
	return pm, nil
}

func (s *service) Rename(ctx context.Context, userID, id uuid.UUID, title string) (*models.PaymentMethod, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and payment method id are required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	affected, err := s.repo.Update(ctx, id, userID, map[string]any{"title": title})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename payment method")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such payment method")
	}
	pm, err := s.repo.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such payment method")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment method")
	}
	return pm, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and payment method id are required")
	}
	affected, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment method")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no such payment method")
	}
	return nil
}
