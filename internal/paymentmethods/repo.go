package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
)

// Repository manages persistence for payment method rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pm *models.PaymentMethod) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PaymentMethod, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error)
	Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment method repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pm *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(pm).Error
}

func (r *repository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&pm).Error; err != nil {
		return nil, err
	}
	return &pm, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentMethod, error) {
	var rows []models.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.PaymentMethod{})
	return res.RowsAffected, res.Error
}
