package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/ports"
)

func newTestStore() *Store {
	logger := slog.New(slog.NewTextHandler(nullWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewStore(logger)
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func sampleListing(collection string, tokenID uint64, seller string, listedAt time.Time) entities.Listing {
	return entities.Listing{
		Collection: collection,
		TokenID:    tokenID,
		Price:      decimal.RequireFromString("10"),
		Seller:     seller,
		ListedAt:   listedAt,
		UpdatedAt:  listedAt,
	}
}

func sampleEvent(id, eventType string, listing entities.Listing) ports.ListingEvent {
	return ports.ListingEvent{
		EventID:      id,
		EventType:    eventType,
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		Price:        listing.Price,
		PartitionKey: listing.Key().String(),
		OccurredAt:   listing.ListedAt,
	}
}

func TestCreateListingWithOutboxRejectsDuplicate(t *testing.T) {
	store := newTestStore()
	listing := sampleListing("0xabc", 1, "seller_1", time.Now().UTC())

	if err := store.CreateListingWithOutbox(context.Background(), listing, sampleEvent("evt-a", "market.listing.created", listing)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.CreateListingWithOutbox(context.Background(), listing, sampleEvent("evt-b", "market.listing.created", listing))
	if !errors.Is(err, domainerrors.ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	if store.PendingCount() != 1 {
		t.Fatalf("expected rejected create to leave no outbox message, got %d pending", store.PendingCount())
	}
}

func TestUpdateAndRemoveRequireExistingListing(t *testing.T) {
	store := newTestStore()
	key := entities.ListingKey{Collection: "0xabc", TokenID: 2}
	listing := sampleListing("0xabc", 2, "seller_1", time.Now().UTC())

	err := store.UpdateListingPriceWithOutbox(context.Background(), key, decimal.RequireFromString("5"), time.Now().UTC(), sampleEvent("evt-a", "market.listing.updated", listing))
	if !errors.Is(err, domainerrors.ErrNotListed) {
		t.Fatalf("expected ErrNotListed on update, got %v", err)
	}

	err = store.RemoveListingWithOutbox(context.Background(), key, sampleEvent("evt-b", "market.listing.canceled", listing))
	if !errors.Is(err, domainerrors.ErrNotListed) {
		t.Fatalf("expected ErrNotListed on remove, got %v", err)
	}

	// Plain RemoveListing tolerates absence so settlement compensation can
	// call it unconditionally.
	if err := store.RemoveListing(context.Background(), key); err != nil {
		t.Fatalf("expected silent remove of absent listing, got %v", err)
	}
}

func TestListListingsPaginatesNewestFirst(t *testing.T) {
	store := newTestStore()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		listing := sampleListing("0xabc", uint64(i+1), "seller_1", base.Add(time.Duration(i)*time.Minute))
		event := sampleEvent(fmt.Sprintf("evt-%d", i), "market.listing.created", listing)
		if err := store.CreateListingWithOutbox(context.Background(), listing, event); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	first, cursor, err := store.ListListings(context.Background(), ports.ListingFilter{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || cursor == "" {
		t.Fatalf("expected 2 items and a cursor, got %d items cursor=%q", len(first), cursor)
	}
	if first[0].TokenID != 5 {
		t.Fatalf("expected newest listing first, got token %d", first[0].TokenID)
	}

	second, cursor2, err := store.ListListings(context.Background(), ports.ListingFilter{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 2 || second[0].TokenID != 3 {
		t.Fatalf("expected tokens 3,2 on second page, got %+v", second)
	}

	third, cursor3, err := store.ListListings(context.Background(), ports.ListingFilter{Limit: 2, Cursor: cursor2})
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(third) != 1 || cursor3 != "" {
		t.Fatalf("expected final page with 1 item and no cursor, got %d items cursor=%q", len(third), cursor3)
	}
}

func TestListListingsFilters(t *testing.T) {
	store := newTestStore()
	now := time.Now().UTC()
	a := sampleListing("0xabc", 1, "seller_1", now)
	b := sampleListing("0xdef", 2, "seller_2", now.Add(time.Second))
	for i, listing := range []entities.Listing{a, b} {
		if err := store.CreateListingWithOutbox(context.Background(), listing, sampleEvent(fmt.Sprintf("evt-%d", i), "market.listing.created", listing)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	bySeller, _, err := store.ListListings(context.Background(), ports.ListingFilter{Seller: "seller_2"})
	if err != nil {
		t.Fatalf("filter by seller: %v", err)
	}
	if len(bySeller) != 1 || bySeller[0].Collection != "0xdef" {
		t.Fatalf("expected one seller_2 listing, got %+v", bySeller)
	}

	byCollection, _, err := store.ListListings(context.Background(), ports.ListingFilter{Collection: "0xabc"})
	if err != nil {
		t.Fatalf("filter by collection: %v", err)
	}
	if len(byCollection) != 1 || byCollection[0].TokenID != 1 {
		t.Fatalf("expected one 0xabc listing, got %+v", byCollection)
	}
}

func TestOutboxPendingAndMarkSent(t *testing.T) {
	store := newTestStore()
	listing := sampleListing("0xabc", 3, "seller_1", time.Now().UTC())
	if err := store.CreateListingWithOutbox(context.Background(), listing, sampleEvent("evt-a", "market.listing.created", listing)); err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "market.listing.created" {
		t.Fatalf("expected one pending created message, got %+v", pending)
	}

	if err := store.MarkOutboxSent(context.Background(), pending[0].OutboxID, time.Now().UTC()); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending after send: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending set, got %d", len(pending))
	}

	// The recorded event log still shows sent messages.
	recorded, err := store.ListRecordedEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list recorded: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(recorded))
	}
}
