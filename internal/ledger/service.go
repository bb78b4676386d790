package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/subscriptions"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/outbox"
	"github.com/tracksubs/tracksubs-backend/pkg/pagination"
)

// Service is the billing ledger. RecordPayment is the only writer of
// transaction rows and the only mover of a subscription's next_billing_date;
// both writes happen in one transaction.
type Service interface {
	RecordPayment(ctx context.Context, userID, subscriptionID uuid.UUID, input RecordPaymentInput) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error)
	ListForSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) ([]models.Transaction, error)
}

// RecordPaymentInput carries the optional overrides for a payment record.
// Amount and currency are never inputs; they are snapshotted from the
// subscription.
type RecordPaymentInput struct {
	PaidDate *time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentCounter interface {
	IncPaymentRecorded(currency string)
}

type clock func() time.Time

// ServiceParams groups dependencies for the ledger service. Metrics is
// optional.
type ServiceParams struct {
	TransactionRepo   Repository
	SubscriptionRepo  subscriptions.Repository
	OutboxService     eventEmitter
	TransactionRunner txRunner
	Metrics           paymentCounter
	Now               clock
}

type service struct {
	repo     Repository
	subRepo  subscriptions.Repository
	outbox   eventEmitter
	txRunner txRunner
	metrics  paymentCounter
	now      clock
}

// NewService constructs a billing ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repo required")
	}
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.OutboxService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.TransactionRepo,
		subRepo:  params.SubscriptionRepo,
		outbox:   params.OutboxService,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// RecordPayment inserts an immutable transaction snapshot and advances the
// subscription's next billing date exactly one interval, atomically. The
// advance is guarded against the date the snapshot was taken from, so two
// concurrent payments can never double-advance.
func (s *service) RecordPayment(ctx context.Context, userID, subscriptionID uuid.UUID, input RecordPaymentInput) (*models.Transaction, error) {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}

	var row *models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txSubs := s.subRepo.WithTx(tx)
		sub, err := txSubs.GetForUser(ctx, subscriptionID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
			}
			return err
		}

		paidDate := truncateToDate(s.now().UTC())
		if input.PaidDate != nil {
			paidDate = truncateToDate(*input.PaidDate)
		}

		row = &models.Transaction{
			UserID:          userID,
			SubscriptionID:  sub.ID,
			PaymentMethodID: sub.PaymentMethodID,
			AmountCents:     sub.AmountCents,
			Currency:        sub.Currency,
			InvoiceDate:     sub.NextBillingDate,
			PaidDate:        paidDate,
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}

		next := sub.Interval.Advance(sub.NextBillingDate)
		if err := txSubs.AdvanceBillingDate(ctx, sub.ID, sub.NextBillingDate, next); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionRecorded,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: map[string]any{
				"transaction_id":    row.ID.String(),
				"subscription_id":   sub.ID.String(),
				"amount":            row.AmountCents,
				"currency":          row.Currency,
				"invoice_date":      row.InvoiceDate.Format("2006-01-02"),
				"paid_date":         row.PaidDate.Format("2006-01-02"),
				"next_billing_date": next.Format("2006-01-02"),
			},
			Version: 1,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	if s.metrics != nil {
		s.metrics.IncPaymentRecorded(string(row.Currency))
	}
	return row, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	list, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return list, nil
}

// ListForSubscription returns the full payment history of one subscription,
// oldest first. Foreign subscription ids collapse into NOT_FOUND.
func (s *service) ListForSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) ([]models.Transaction, error) {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}
	if _, err := s.subRepo.GetForUser(ctx, subscriptionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	rows, err := s.repo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription payments")
	}
	return rows, nil
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
