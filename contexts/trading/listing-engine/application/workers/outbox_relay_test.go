package workers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/contexts/trading/listing-engine/adapters/memory"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	"bazaar/contexts/trading/listing-engine/ports"
)

type capturingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type silentWriter struct{}

func (silentWriter) Write(p []byte) (int, error) { return len(p), nil }

func relayFixture(t *testing.T) (*memory.Store, *capturingPublisher, OutboxRelay) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(silentWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewStore(logger)
	publisher := &capturingPublisher{}
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
		BatchSize: 10,
		Logger:    logger,
	}
	return store, publisher, relay
}

func stageListing(t *testing.T, store *memory.Store, tokenID uint64, eventID string) {
	t.Helper()
	listing := entities.Listing{
		Collection: "0xabc",
		TokenID:    tokenID,
		Price:      decimal.RequireFromString("10"),
		Seller:     "seller_1",
		ListedAt:   time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	event := ports.ListingEvent{
		EventID:      eventID,
		EventType:    "market.listing.created",
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		Price:        listing.Price,
		PartitionKey: listing.Key().String(),
		OccurredAt:   listing.ListedAt,
	}
	if err := store.CreateListingWithOutbox(context.Background(), listing, event); err != nil {
		t.Fatalf("stage listing %d: %v", tokenID, err)
	}
}

func TestRelayPublishesPendingAndMarksSent(t *testing.T) {
	store, publisher, relay := relayFixture(t)
	stageListing(t, store, 1, "evt-1")
	stageListing(t, store, 2, "evt-2")

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run: %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	for _, topic := range publisher.topics {
		if topic != DefaultTopic {
			t.Fatalf("expected topic %q, got %q", DefaultTopic, topic)
		}
	}
	if publisher.events[0].EventType != "market.listing.created" {
		t.Fatalf("expected created event, got %q", publisher.events[0].EventType)
	}
	if store.PendingCount() != 0 {
		t.Fatalf("expected empty outbox after relay, got %d pending", store.PendingCount())
	}
}

func TestRelayIsIdempotentAcrossRuns(t *testing.T) {
	store, publisher, relay := relayFixture(t)
	stageListing(t, store, 3, "evt-3")

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one publish across runs, got %d", len(publisher.events))
	}
}

func TestRelayKeepsMessagePendingWhenPublishFails(t *testing.T) {
	store, publisher, relay := relayFixture(t)
	stageListing(t, store, 4, "evt-4")
	publisher.err = errors.New("broker down")

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatal("expected relay error when publish fails")
	}
	if store.PendingCount() != 1 {
		t.Fatalf("expected message still pending, got %d", store.PendingCount())
	}

	publisher.err = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if len(publisher.events) != 1 || store.PendingCount() != 0 {
		t.Fatalf("expected successful retry, events=%d pending=%d", len(publisher.events), store.PendingCount())
	}
}
