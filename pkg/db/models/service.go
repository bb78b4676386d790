package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is a catalog entry for a well-known subscription provider.
type Service struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Key       string    `gorm:"column:key;not null;uniqueIndex"`
	Title     string    `gorm:"column:title;not null"`
	Website   *string   `gorm:"column:website"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
