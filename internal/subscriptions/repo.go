package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// ListFilters narrows the subscription listing.
type ListFilters struct {
	Interval *enums.BillingInterval
}

// Repository manages persistence for subscription rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]models.Subscription, error)
	Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (int64, error)
	AdvanceBillingDate(ctx context.Context, id uuid.UUID, from, to time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListForUser orders active subscriptions first, nearest billing date first
// within each group.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]models.Subscription, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID)
	if filters.Interval != nil {
		query = query.Where("interval = ?", *filters.Interval)
	}

	var subs []models.Subscription
	if err := query.
		Order("is_active DESC").
		Order("next_billing_date ASC").
		Order("id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 1, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) Delete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

// AdvanceBillingDate moves next_billing_date forward with a compare-and-set
// guard on the value it was read at. Zero rows affected means a concurrent
// payment already advanced the date; the caller's transaction must abort.
func (r *repository) AdvanceBillingDate(ctx context.Context, id uuid.UUID, from, to time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND next_billing_date = ?", id, from).
		UpdateColumn("next_billing_date", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "billing date advanced concurrently")
	}
	return nil
}
