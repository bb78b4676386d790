package waitlist

import (
	"context"

	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
)

// Repository manages persistence for waitlist signups.
type Repository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a waitlist repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&count).Error
	return count, err
}
