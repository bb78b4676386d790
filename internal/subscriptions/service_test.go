package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/internal/usage"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
	"github.com/tracksubs/tracksubs-backend/pkg/outbox"
)

type fakeSubRepo struct {
	subs    map[uuid.UUID]*models.Subscription
	updates map[string]any
	deleted []uuid.UUID
}

func newFakeSubRepo(subs ...*models.Subscription) *fakeSubRepo {
	byID := map[uuid.UUID]*models.Subscription{}
	for _, sub := range subs {
		byID[sub.ID] = sub
	}
	return &fakeSubRepo{subs: byID}
}

func (f *fakeSubRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeSubRepo) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeSubRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Subscription, error) {
	if sub, ok := f.subs[id]; ok && sub.UserID == userID {
		return sub, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeSubRepo) Update(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (int64, error) {
	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return 0, nil
	}
	f.updates = updates
	if enabled, ok := updates["email_alert"].(bool); ok {
		sub.EmailAlert = enabled
	}
	return 1, nil
}

func (f *fakeSubRepo) Delete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return 0, nil
	}
	delete(f.subs, id)
	f.deleted = append(f.deleted, id)
	return 1, nil
}

func (f *fakeSubRepo) AdvanceBillingDate(ctx context.Context, id uuid.UUID, from, to time.Time) error {
	return nil
}

type counterOp struct {
	counter enums.UsageCounter
	delta   int
}

type fakeUsageRepo struct {
	incremented []counterOp
	decremented []counterOp
	decErr      error
}

func (f *fakeUsageRepo) WithTx(tx *gorm.DB) usage.Repository { return f }

func (f *fakeUsageRepo) Create(ctx context.Context, row *models.Usage) error { return nil }

func (f *fakeUsageRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsageRepo) Increment(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	f.incremented = append(f.incremented, counterOp{counter: counter, delta: delta})
	return nil
}

func (f *fakeUsageRepo) Decrement(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	if f.decErr != nil {
		return f.decErr
	}
	f.decremented = append(f.decremented, counterOp{counter: counter, delta: delta})
	return nil
}

type fakePMSource struct {
	owners map[uuid.UUID]uuid.UUID
}

func (f *fakePMSource) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.PaymentMethod, error) {
	if owner, ok := f.owners[id]; ok && owner == userID {
		return &models.PaymentMethod{ID: id, UserID: owner}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRegistry(t *testing.T, repo *fakeSubRepo, usageRepo *fakeUsageRepo, emitter *fakeEmitter) Service {
	t.Helper()
	return newRegistryWithPM(t, repo, usageRepo, emitter, &fakePMSource{})
}

func newRegistryWithPM(t *testing.T, repo *fakeSubRepo, usageRepo *fakeUsageRepo, emitter *fakeEmitter, pms *fakePMSource) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		SubscriptionRepo:  repo,
		UsageRepo:         usageRepo,
		PaymentMethodRepo: pms,
		OutboxService:     emitter,
		TransactionRunner: &fakeTxRunner{},
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func validCreateInput() CreateInput {
	return CreateInput{
		Title:           "Streaming Service",
		AmountCents:     1299,
		Currency:        enums.CurrencyUSD,
		Interval:        enums.BillingIntervalMonthly,
		NextBillingDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateBumpsSubscriptionCounter(t *testing.T) {
	repo := newFakeSubRepo()
	usageRepo := &fakeUsageRepo{}
	emitter := &fakeEmitter{}
	svc := newRegistry(t, repo, usageRepo, emitter)

	sub, err := svc.Create(context.Background(), uuid.New(), validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sub.IsActive {
		t.Fatal("new subscriptions start active")
	}
	if len(usageRepo.incremented) != 1 {
		t.Fatalf("expected one counter increment, got %d", len(usageRepo.incremented))
	}
	if usageRepo.incremented[0].counter != enums.UsageCounterSubscriptions {
		t.Fatalf("wrong counter: %s", usageRepo.incremented[0].counter)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSubscriptionCreated {
		t.Fatalf("expected subscription_created event, got %+v", emitter.events)
	}
}

func TestCreateWithAlertBumpsBothCounters(t *testing.T) {
	usageRepo := &fakeUsageRepo{}
	svc := newRegistry(t, newFakeSubRepo(), usageRepo, &fakeEmitter{})

	input := validCreateInput()
	input.EmailAlert = true
	if _, err := svc.Create(context.Background(), uuid.New(), input); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(usageRepo.incremented) != 2 {
		t.Fatalf("expected two increments, got %d", len(usageRepo.incremented))
	}
	if usageRepo.incremented[1].counter != enums.UsageCounterAlerts {
		t.Fatalf("second increment should be alerts, got %s", usageRepo.incremented[1].counter)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newRegistry(t, newFakeSubRepo(), &fakeUsageRepo{}, &fakeEmitter{})

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = "  " }},
		{"negative amount", func(in *CreateInput) { in.AmountCents = -1 }},
		{"invalid currency", func(in *CreateInput) { in.Currency = "XXX" }},
		{"missing interval", func(in *CreateInput) { in.Interval = "" }},
		{"missing billing date", func(in *CreateInput) { in.NextBillingDate = time.Time{} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			if _, err := svc.Create(context.Background(), uuid.New(), input); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestCreateAcceptsOwnPaymentMethod(t *testing.T) {
	userID := uuid.New()
	pmID := uuid.New()
	pms := &fakePMSource{owners: map[uuid.UUID]uuid.UUID{pmID: userID}}
	svc := newRegistryWithPM(t, newFakeSubRepo(), &fakeUsageRepo{}, &fakeEmitter{}, pms)

	input := validCreateInput()
	input.PaymentMethodID = &pmID
	sub, err := svc.Create(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.PaymentMethodID == nil || *sub.PaymentMethodID != pmID {
		t.Fatal("payment method not attached")
	}
}

func TestCreateRejectsForeignPaymentMethod(t *testing.T) {
	victimID := uuid.New()
	pmID := uuid.New()
	pms := &fakePMSource{owners: map[uuid.UUID]uuid.UUID{pmID: victimID}}
	usageRepo := &fakeUsageRepo{}
	svc := newRegistryWithPM(t, newFakeSubRepo(), usageRepo, &fakeEmitter{}, pms)

	input := validCreateInput()
	input.PaymentMethodID = &pmID
	_, err := svc.Create(context.Background(), uuid.New(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign payment method, got %v", err)
	}
	if len(usageRepo.incremented) != 0 {
		t.Fatal("rejected create must not touch counters")
	}
}

func TestUpdateRejectsForeignPaymentMethod(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{ID: uuid.New(), UserID: userID}
	pmID := uuid.New()
	pms := &fakePMSource{owners: map[uuid.UUID]uuid.UUID{pmID: uuid.New()}}
	repo := newFakeSubRepo(sub)
	svc := newRegistryWithPM(t, repo, &fakeUsageRepo{}, &fakeEmitter{}, pms)

	_, err := svc.Update(context.Background(), userID, sub.ID, UpdateInput{PaymentMethodID: &pmID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign payment method, got %v", err)
	}
	if repo.updates != nil {
		t.Fatal("rejected update must not reach the repository")
	}
}

func TestUpdateCannotTouchBillingDate(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{
		ID:              uuid.New(),
		UserID:          userID,
		Title:           "Music",
		Currency:        enums.CurrencyUSD,
		Interval:        enums.BillingIntervalMonthly,
		NextBillingDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	repo := newFakeSubRepo(sub)
	svc := newRegistry(t, repo, &fakeUsageRepo{}, &fakeEmitter{})

	title := "Music Plus"
	amount := int64(1999)
	if _, err := svc.Update(context.Background(), userID, sub.ID, UpdateInput{Title: &title, AmountCents: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if repo.updates["title"] != "Music Plus" {
		t.Fatalf("title not updated: %v", repo.updates)
	}
	if _, ok := repo.updates["next_billing_date"]; ok {
		t.Fatal("update path must never write next_billing_date")
	}
}

func TestUpdateForeignSubscriptionIsNotFound(t *testing.T) {
	sub := &models.Subscription{ID: uuid.New(), UserID: uuid.New()}
	svc := newRegistry(t, newFakeSubRepo(sub), &fakeUsageRepo{}, &fakeEmitter{})

	title := "Hijack"
	_, err := svc.Update(context.Background(), uuid.New(), sub.ID, UpdateInput{Title: &title})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign row, got %v", err)
	}
}

func TestDeleteDecrementsCounters(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{ID: uuid.New(), UserID: userID, EmailAlert: true}
	repo := newFakeSubRepo(sub)
	usageRepo := &fakeUsageRepo{}
	emitter := &fakeEmitter{}
	svc := newRegistry(t, repo, usageRepo, emitter)

	if err := svc.Delete(context.Background(), userID, sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("row not deleted")
	}
	if len(usageRepo.decremented) != 2 {
		t.Fatalf("expected both counters decremented, got %d", len(usageRepo.decremented))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSubscriptionDeleted {
		t.Fatalf("expected subscription_deleted event, got %+v", emitter.events)
	}
}

func TestDeleteAbortsOnCounterUnderflow(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{ID: uuid.New(), UserID: userID}
	repo := newFakeSubRepo(sub)
	usageRepo := &fakeUsageRepo{decErr: pkgerrors.New(pkgerrors.CodeInternal, "usage counter underflow")}
	svc := newRegistry(t, repo, usageRepo, &fakeEmitter{})

	err := svc.Delete(context.Background(), userID, sub.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected underflow to abort delete, got %v", err)
	}
}

func TestSetAlertNoOpLeavesCountersAlone(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{ID: uuid.New(), UserID: userID, EmailAlert: true}
	usageRepo := &fakeUsageRepo{}
	emitter := &fakeEmitter{}
	svc := newRegistry(t, newFakeSubRepo(sub), usageRepo, emitter)

	got, err := svc.SetAlert(context.Background(), userID, sub.ID, true)
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if !got.EmailAlert {
		t.Fatal("alert flag lost")
	}
	if len(usageRepo.incremented) != 0 || len(usageRepo.decremented) != 0 {
		t.Fatal("no-op toggle must not touch counters")
	}
	if len(emitter.events) != 0 {
		t.Fatal("no-op toggle must not emit events")
	}
}

func TestSetAlertTogglesCounter(t *testing.T) {
	userID := uuid.New()
	sub := &models.Subscription{ID: uuid.New(), UserID: userID, EmailAlert: false}
	usageRepo := &fakeUsageRepo{}
	emitter := &fakeEmitter{}
	svc := newRegistry(t, newFakeSubRepo(sub), usageRepo, emitter)

	got, err := svc.SetAlert(context.Background(), userID, sub.ID, true)
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if !got.EmailAlert {
		t.Fatal("alert flag not set")
	}
	if len(usageRepo.incremented) != 1 || usageRepo.incremented[0].counter != enums.UsageCounterAlerts {
		t.Fatalf("expected alerts increment, got %+v", usageRepo.incremented)
	}

	if _, err := svc.SetAlert(context.Background(), userID, sub.ID, false); err != nil {
		t.Fatalf("unset alert: %v", err)
	}
	if len(usageRepo.decremented) != 1 || usageRepo.decremented[0].counter != enums.UsageCounterAlerts {
		t.Fatalf("expected alerts decrement, got %+v", usageRepo.decremented)
	}
}
