package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/pagination"
)

// TransactionRecord is a ledger row joined with display context.
type TransactionRecord struct {
	models.Transaction
	SubscriptionTitle  string  `gorm:"column:subscription_title" json:"subscription_title"`
	ServiceKey         *string `gorm:"column:service_key" json:"service_key,omitempty"`
	PaymentMethodTitle *string `gorm:"column:payment_method_title" json:"payment_method_title,omitempty"`
}

// TransactionList is one page of ledger rows.
type TransactionList struct {
	Transactions []TransactionRecord `json:"transactions"`
	NextCursor   string              `json:"next_cursor,omitempty"`
}

// Repository manages persistence for transaction rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.Transaction) error
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, row *models.Transaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// ListForUser returns newest-first cursor-paginated rows joined with the
// subscription and payment method titles.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("transactions.*, subscriptions.title AS subscription_title, subscriptions.service_key AS service_key, payment_methods.title AS payment_method_title").
		Joins("LEFT JOIN subscriptions ON subscriptions.id = transactions.subscription_id").
		Joins("LEFT JOIN payment_methods ON payment_methods.id = transactions.payment_method_id AND payment_methods.user_id = transactions.user_id").
		Where("transactions.user_id = ?", userID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"transactions.created_at < ? OR (transactions.created_at = ? AND transactions.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []TransactionRecord
	if err := query.
		Order("transactions.created_at DESC").
		Order("transactions.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &TransactionList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	list.Transactions = rows
	return list, nil
}

func (r *repository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]models.Transaction, error) {
	var rows []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
