package usage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	pkgerrors "github.com/tracksubs/tracksubs-backend/pkg/errors"
)

type fakeCounterRepo struct {
	rows map[uuid.UUID]*models.Usage
}

func (f *fakeCounterRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeCounterRepo) Create(ctx context.Context, row *models.Usage) error { return nil }

func (f *fakeCounterRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Usage, error) {
	if row, ok := f.rows[userID]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCounterRepo) Increment(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	return nil
}

func (f *fakeCounterRepo) Decrement(ctx context.Context, userID uuid.UUID, counter enums.UsageCounter, delta int) error {
	return nil
}

func TestServiceGetReturnsCounters(t *testing.T) {
	userID := uuid.New()
	row := &models.Usage{ID: uuid.New(), UserID: userID, TotalSubscriptions: 4, TotalAlerts: 2}
	svc, err := NewService(&fakeCounterRepo{rows: map[uuid.UUID]*models.Usage{userID: row}})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	got, err := svc.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalSubscriptions != 4 || got.TotalAlerts != 2 {
		t.Fatalf("wrong counters: %+v", got)
	}
}

func TestServiceGetMissingRowIsNotFound(t *testing.T) {
	svc, err := NewService(&fakeCounterRepo{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestServiceGetRequiresUserID(t *testing.T) {
	svc, err := NewService(&fakeCounterRepo{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	if _, err := svc.Get(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected validation error")
	}
}
