package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/usage"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/outbox"
)

// Service is the subscription registry. Every mutation that changes how many
// subscriptions or alerts a user has also adjusts the usage counters inside
// the same transaction.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]models.Subscription, error)
	Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Subscription, error)
	Update(ctx context.Context, userID, subscriptionID uuid.UUID, input UpdateInput) (*models.Subscription, error)
	Delete(ctx context.Context, userID, subscriptionID uuid.UUID) error
	SetAlert(ctx context.Context, userID, subscriptionID uuid.UUID, enabled bool) (*models.Subscription, error)
}

// CreateInput captures the payload required to register a subscription.
type CreateInput struct {
	Title           string
	Website         *string
	ServiceKey      *string
	AmountCents     int64
	Currency        enums.Currency
	Interval        enums.BillingInterval
	EmailAlert      bool
	NextBillingDate time.Time
	PaymentMethodID *uuid.UUID
}

// UpdateInput carries the mutable subscription fields. Nil means unchanged.
// NextBillingDate is deliberately absent: only the billing ledger moves it.
type UpdateInput struct {
	Title           *string
	Website         *string
	ServiceKey      *string
	AmountCents     *int64
	Currency        *enums.Currency
	Interval        *enums.BillingInterval
	IsActive        *bool
	PaymentMethodID *uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentMethodSource interface {
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PaymentMethod, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the registry service.
type ServiceParams struct {
	SubscriptionRepo  Repository
	UsageRepo         usage.Repository
	PaymentMethodRepo paymentMethodSource
	OutboxService     eventEmitter
	TransactionRunner txRunner
}

type service struct {
	repo      Repository
	usageRepo usage.Repository
	pmRepo    paymentMethodSource
	outbox    eventEmitter
	txRunner  txRunner
}

// NewService constructs a subscription registry service.
func NewService(params ServiceParams) (Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.UsageRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage repo required")
	}
	if params.PaymentMethodRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment method repo required")
	}
	if params.OutboxService == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:      params.SubscriptionRepo,
		usageRepo: params.UsageRepo,
		pmRepo:    params.PaymentMethodRepo,
		outbox:    params.OutboxService,
		txRunner:  params.TransactionRunner,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if filters.Interval != nil && !filters.Interval.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid interval filter")
	}
	subs, err := s.repo.ListForUser(ctx, userID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

func (s *service) Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}
	return s.loadOwned(ctx, s.repo, subscriptionID, userID)
}

// Create inserts the subscription and bumps the usage counters in one
// transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}
	if !input.Interval.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing interval")
	}
	if input.NextBillingDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "next billing date is required")
	}
	if input.PaymentMethodID != nil {
		if err := s.checkPaymentMethod(ctx, userID, *input.PaymentMethodID); err != nil {
			return nil, err
		}
	}

	sub := &models.Subscription{
		UserID:          userID,
		Title:           title,
		Website:         input.Website,
		ServiceKey:      input.ServiceKey,
		AmountCents:     input.AmountCents,
		Currency:        input.Currency,
		Interval:        input.Interval,
		IsActive:        true,
		EmailAlert:      input.EmailAlert,
		NextBillingDate: truncateToDate(input.NextBillingDate),
		PaymentMethodID: input.PaymentMethodID,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, sub); err != nil {
			return err
		}
		txUsage := s.usageRepo.WithTx(tx)
		if err := txUsage.Increment(ctx, userID, enums.UsageCounterSubscriptions, 1); err != nil {
			return err
		}
		if sub.EmailAlert {
			if err := txUsage.Increment(ctx, userID, enums.UsageCounterAlerts, 1); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionCreated,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data:          subscriptionEventData(sub),
			Version:       1,
		})
	})
	if err != nil {
		return nil, wrapRegistryErr(err, "create subscription")
	}
	return sub, nil
}

// Update writes the allow-listed columns. Alert toggling goes through
// SetAlert so the total_alerts counter cannot drift.
func (s *service) Update(ctx context.Context, userID, subscriptionID uuid.UUID, input UpdateInput) (*models.Subscription, error) {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title must not be empty")
		}
		updates["title"] = title
	}
	if input.Website != nil {
		updates["website"] = strings.TrimSpace(*input.Website)
	}
	if input.ServiceKey != nil {
		updates["service_key"] = strings.TrimSpace(*input.ServiceKey)
	}
	if input.AmountCents != nil {
		if *input.AmountCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
		}
		updates["amount"] = *input.AmountCents
	}
	if input.Currency != nil {
		if !input.Currency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
		}
		updates["currency"] = *input.Currency
	}
	if input.Interval != nil {
		if !input.Interval.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid interval")
		}
		updates["interval"] = *input.Interval
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.PaymentMethodID != nil {
		if err := s.checkPaymentMethod(ctx, userID, *input.PaymentMethodID); err != nil {
			return nil, err
		}
		updates["payment_method_id"] = *input.PaymentMethodID
	}

	if len(updates) > 0 {
		affected, err := s.repo.Update(ctx, subscriptionID, userID, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
		}
	}

	return s.loadOwned(ctx, s.repo, subscriptionID, userID)
}

// Delete removes the subscription and decrements the usage counters in one
// transaction. The counter floor guard turns any drift into a loud abort.
func (s *service) Delete(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sub, err := s.loadOwned(ctx, txRepo, subscriptionID, userID)
		if err != nil {
			return err
		}

		affected, err := txRepo.Delete(ctx, subscriptionID, userID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
		}

		txUsage := s.usageRepo.WithTx(tx)
		if err := txUsage.Decrement(ctx, userID, enums.UsageCounterSubscriptions, 1); err != nil {
			return err
		}
		if sub.EmailAlert {
			if err := txUsage.Decrement(ctx, userID, enums.UsageCounterAlerts, 1); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionDeleted,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data:          subscriptionEventData(sub),
			Version:       1,
		})
	})
}

// SetAlert toggles the email alert flag. A no-op toggle leaves the counters
// untouched; an actual change moves total_alerts in the same transaction.
func (s *service) SetAlert(ctx context.Context, userID, subscriptionID uuid.UUID, enabled bool) (*models.Subscription, error) {
	if userID == uuid.Nil || subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and subscription id are required")
	}

	var out *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		sub, err := s.loadOwned(ctx, txRepo, subscriptionID, userID)
		if err != nil {
			return err
		}
		if sub.EmailAlert == enabled {
			out = sub
			return nil
		}

		affected, err := txRepo.Update(ctx, subscriptionID, userID, map[string]any{"email_alert": enabled})
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
		}

		txUsage := s.usageRepo.WithTx(tx)
		if enabled {
			if err := txUsage.Increment(ctx, userID, enums.UsageCounterAlerts, 1); err != nil {
				return err
			}
		} else {
			if err := txUsage.Decrement(ctx, userID, enums.UsageCounterAlerts, 1); err != nil {
				return err
			}
		}

		sub.EmailAlert = enabled
		out = sub
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionAlertToggled,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data:          map[string]any{"email_alert": enabled},
			Version:       1,
		})
	})
	if err != nil {
		return nil, wrapRegistryErr(err, "toggle alert")
	}
	return out, nil
}

// checkPaymentMethod rejects payment method ids owned by other users with
// NOT_FOUND. The FK only proves existence, so ownership is verified here.
func (s *service) checkPaymentMethod(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.pmRepo.GetForUser(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no such payment method")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	return nil
}

// loadOwned collapses rows owned by other users into NOT_FOUND so callers
// cannot enumerate foreign subscription ids.
func (s *service) loadOwned(ctx context.Context, repo Repository, id, userID uuid.UUID) (*models.Subscription, error) {
	sub, err := repo.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no such subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}

func wrapRegistryErr(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func subscriptionEventData(sub *models.Subscription) map[string]any {
	return map[string]any{
		"subscription_id":   sub.ID.String(),
		"title":             sub.Title,
		"amount":            sub.AmountCents,
		"currency":          sub.Currency,
		"interval":          sub.Interval,
		"email_alert":       sub.EmailAlert,
		"next_billing_date": sub.NextBillingDate.Format("2006-01-02"),
	}
}

func truncateToDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
