package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/pkg/enums"
)

// User represents the canonical identity entity. Rows are created on first
// authenticated access and never deleted by this service.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AuthID       string         `gorm:"column:auth_id;type:text;not null;uniqueIndex"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name;not null;default:''"`
	LastName     string         `gorm:"column:last_name;not null;default:''"`
	Timezone     *string        `gorm:"column:timezone"`
	Currency     enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	ImageURL     *string        `gorm:"column:image_url"`
	IsOnboarded  bool           `gorm:"column:is_onboarded;not null;default:false"`
	UsageID      *uuid.UUID     `gorm:"column:usage_id;type:uuid"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
