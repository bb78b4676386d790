package main

import (
	"context"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tracksubs/tracksubs-backend/pkg/config"
	"github.com/tracksubs/tracksubs-backend/pkg/db/models"
	"github.com/tracksubs/tracksubs-backend/pkg/enums"
	"github.com/tracksubs/tracksubs-backend/pkg/logger"
	"github.com/tracksubs/tracksubs-backend/pkg/metrics"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	drained   bool
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.drained {
		return nil, nil
	}
	f.drained = true
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error { return nil }

func (fakePubSub) DomainPublisher() *gcppubsub.Publisher { return nil }

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "msg-id", f.err
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Level: logger.ParseLevel("error"), Output: io.Discard})
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		PubSub:           fakePubSub{},
		Repository:       repo,
		Metrics:          metrics.NewPublisherMetrics(nil),
		PublisherFactory: func() publisher { return pub },
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return service
}

func outboxEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			outboxEvent(enums.EventSubscriptionCreated),
			outboxEvent(enums.EventTransactionRecorded),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestProcessBatchSetsMessageAttributes(t *testing.T) {
	event := outboxEvent(enums.EventTransactionRecorded)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one published message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if got := msg.Attributes["event_type"]; got != "transaction_recorded" {
		t.Fatalf("unexpected event_type attribute %q", got)
	}
	if got := msg.Attributes["aggregate_id"]; got != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute %q", got)
	}
	if string(msg.Data) != `{"version":1}` {
		t.Fatalf("payload not forwarded verbatim: %s", msg.Data)
	}
}

func TestProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("empty fetch must report idle")
	}
}
