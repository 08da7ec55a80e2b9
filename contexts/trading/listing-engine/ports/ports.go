package ports

import (
	"context"
	"time"

	"bazaar/contexts/trading/listing-engine/domain/entities"
	"bazaar/internal/shared/events"

	"github.com/shopspring/decimal"
)

// ListingFilter defines read-side filtering/pagination for the public
// listing mapping. Only currently active listings are visible.
type ListingFilter struct {
	Collection string
	Seller     string
	Cursor     string
	Limit      int
}

// ListingEvent is the notification payload persisted to the outbox together
// with the state change it records.
type ListingEvent struct {
	EventID      string
	EventType    string
	Collection   string
	TokenID      uint64
	Seller       string
	Buyer        string
	Price        decimal.Decimal
	PartitionKey string
	OccurredAt   time.Time
}

// ListingRepository owns listing persistence and the write boundaries that
// couple a state change with its outbox record. The repository is the single
// owner of listing rows; no component keeps a copy across operations.
type ListingRepository interface {
	GetListing(ctx context.Context, key entities.ListingKey) (entities.Listing, bool, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]entities.Listing, string, error)
	// CreateListingWithOutbox must atomically persist the listing and its
	// created event.
	CreateListingWithOutbox(ctx context.Context, listing entities.Listing, event ListingEvent) error
	// UpdateListingPriceWithOutbox mutates the price in place, leaving the
	// recorded seller untouched.
	UpdateListingPriceWithOutbox(ctx context.Context, key entities.ListingKey, price decimal.Decimal, updatedAt time.Time, event ListingEvent) error
	RemoveListingWithOutbox(ctx context.Context, key entities.ListingKey, event ListingEvent) error
	// RemoveListing and PutListing are the settlement path: removal happens
	// before external effects, PutListing reinstates on compensation.
	// RemoveListing on an absent key is a no-op.
	RemoveListing(ctx context.Context, key entities.ListingKey) error
	PutListing(ctx context.Context, listing entities.Listing) error
	// AppendEvent records an event with no coupled state change. Used for the
	// purchased event, which is emitted only after settlement succeeds.
	AppendEvent(ctx context.Context, event ListingEvent) error
}

// AssetRegistry is the external, live ownership oracle. Answers are queried
// fresh within each operation.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, collection string, tokenID uint64) (string, error)
	ApprovedOperator(ctx context.Context, collection string, tokenID uint64) (string, error)
	Transfer(ctx context.Context, collection string, tokenID uint64, from, to string) error
}

// PaymentGateway forwards the attached amount to the recorded seller during
// settlement.
type PaymentGateway interface {
	Forward(ctx context.Context, from, to string, amount decimal.Decimal) error
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventLog exposes the append-only notification record to external
// observers, newest first.
type EventLog interface {
	ListRecordedEvents(ctx context.Context, limit int) ([]OutboxMessage, error)
}

// EventEnvelope reuses the canonical cross-runtime envelope shape.
type EventEnvelope = events.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
