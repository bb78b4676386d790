package usage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

// Repository manages persistence for per-user usage counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.Usage) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error)
	Increment(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error
	Decrement(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.Usage) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	var row models.Usage
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Increment bumps the counter column in place so concurrent writers never
// clobber each other's value.
func (r *repository) Increment(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	column, err := counterColumn(counter)
	if err != nil {
		return err
	}
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "usage delta must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "usage row missing for user")
	}
	return nil
}

// Decrement subtracts from the counter with a floor guard in the WHERE clause.
// Zero rows affected means the counters drifted from reality; callers run this
// inside a transaction, so the error aborts the whole mutation.
func (r *repository) Decrement(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	column, err := counterColumn(counter)
	if err != nil {
		return err
	}
	if delta <= 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "usage delta must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("user_id = ? AND "+column+" >= ?", userID, delta).
		UpdateColumn(column, gorm.Expr(column+" - ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "usage counter underflow").
			WithDetails(map[string]any{"counter": counter.String()})
	}
	return nil
}

func counterColumn(counter enums.UsageCounter) (string, error) {
	if !counter.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "unknown usage counter")
	}
	return counter.String(), nil
}
