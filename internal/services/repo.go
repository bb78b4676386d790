package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
)

// Repository reads the well-known provider catalog.
type Repository interface {
	List(ctx context.Context) ([]models.Service, error)
	GetByKey(ctx context.Context, key string) (*models.Service, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]models.Service, error) {
	var rows []models.Service
	if err := r.db.WithContext(ctx).
		Order("title ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) GetByKey(ctx context.Context, key string) (*models.Service, error) {
	var svc models.Service
	if err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}
