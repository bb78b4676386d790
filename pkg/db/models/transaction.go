package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/pkg/enums"
)

// Transaction is an immutable ledger row recording one payment against a
// subscription. Amount and currency are snapshotted from the subscription at
// recording time and never re-derived. InvoiceDate is the subscription's
// next_billing_date at the moment the payment was recorded.
type Transaction struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID  uuid.UUID      `gorm:"column:subscription_id;type:uuid;not null;index"`
	PaymentMethodID *uuid.UUID     `gorm:"column:payment_method_id;type:uuid"`
	AmountCents     int64          `gorm:"column:amount;not null"`
	Currency        enums.Currency `gorm:"column:currency;type:text;not null"`
	InvoiceDate     time.Time      `gorm:"column:invoice_date;type:date;not null"`
	PaidDate        time.Time      `gorm:"column:paid_date;type:date;not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}
