package models

import (
	"time"

	"github.com/google/uuid"
)

// Usage holds the denormalized per-user aggregate counters. The columns are
// kept in lockstep with subscription rows: total_subscriptions equals the
// live subscription count, total_alerts the count with alerting enabled.
// Only the registry and ledger transaction paths may write here.
type Usage struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	TotalSubscriptions int       `gorm:"column:total_subscriptions;not null;default:0"`
	TotalAlerts        int       `gorm:"column:total_alerts;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the historical singular table name.
func (Usage) TableName() string {
	return "usage"
}
