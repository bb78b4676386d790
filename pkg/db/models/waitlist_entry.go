package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry stores a signup request for the private beta. Email carries a
// unique constraint; duplicates surface as a conflict.
type WaitlistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:waitlist_email_unique"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the historical table name.
func (WaitlistEntry) TableName() string {
	return "waitlist"
}
