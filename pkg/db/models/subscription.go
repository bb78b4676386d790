package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/pkg/enums"
)

// Subscription is a recurring expense tracked for a single owning user.
// NextBillingDate is advanced only by the billing ledger when a payment is
// recorded; the registry's update path must never touch it.
type Subscription struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Title           string                `gorm:"column:title;not null"`
	Website         *string               `gorm:"column:website"`
	ServiceKey      *string               `gorm:"column:service_key"`
	AmountCents     int64                 `gorm:"column:amount;not null"`
	Currency        enums.Currency        `gorm:"column:currency;type:text;not null"`
	Interval        enums.BillingInterval `gorm:"column:interval;type:text;not null"`
	IsActive        bool                  `gorm:"column:is_active;not null;default:true"`
	EmailAlert      bool                  `gorm:"column:email_alert;not null;default:false"`
	NextBillingDate time.Time             `gorm:"column:next_billing_date;type:date;not null"`
	PaymentMethodID *uuid.UUID            `gorm:"column:payment_method_id;type:uuid"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
