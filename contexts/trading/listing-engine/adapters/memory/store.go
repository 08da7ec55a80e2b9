package memory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	application "bazaar/contexts/trading/listing-engine/application"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/ports"
	"bazaar/internal/shared/outbox"

	"github.com/shopspring/decimal"
)

// Store is an in-memory adapter implementing the listing-engine persistence
// ports for local runtime and tests. It is not intended as production
// persistence. The mutex serializes every operation, matching the engine's
// one-transaction-at-a-time execution model.
type Store struct {
	mu          sync.RWMutex
	listings    map[entities.ListingKey]entities.Listing
	outbox      map[string]ports.OutboxMessage
	outboxOrder []string
	outboxSent  map[string]time.Time
	sequence    uint64
	logger      *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		listings:    make(map[entities.ListingKey]entities.Listing),
		outbox:      make(map[string]ports.OutboxMessage),
		outboxOrder: make([]string, 0),
		outboxSent:  make(map[string]time.Time),
		logger:      application.ResolveLogger(logger),
	}
}

func (s *Store) GetListing(_ context.Context, key entities.ListingKey) (entities.Listing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[key]
	return listing, ok, nil
}

func (s *Store) ListListings(_ context.Context, filter ports.ListingFilter) ([]entities.Listing, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []entities.Listing
	for _, listing := range s.listings {
		if filter.Collection != "" && listing.Collection != filter.Collection {
			continue
		}
		if filter.Seller != "" && listing.Seller != filter.Seller {
			continue
		}
		filtered = append(filtered, listing)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].ListedAt.Equal(filtered[j].ListedAt) {
			return filtered[i].Key().String() < filtered[j].Key().String()
		}
		return filtered[i].ListedAt.After(filtered[j].ListedAt)
	})

	start := decodeCursor(filter.Cursor)
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + filter.Limit
	if filter.Limit <= 0 {
		end = start + 20
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	page := append([]entities.Listing(nil), filtered[start:end]...)
	nextCursor := ""
	if end < len(filtered) {
		nextCursor = encodeCursor(end)
	}
	return page, nextCursor, nil
}

func (s *Store) CreateListingWithOutbox(_ context.Context, listing entities.Listing, event ports.ListingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listing.Key()
	if _, exists := s.listings[key]; exists {
		return domainerrors.ErrAlreadyListed
	}

	payload, err := marshalListingEnvelope(event)
	if err != nil {
		return err
	}

	s.listings[key] = listing
	s.appendOutboxLocked(event, payload)

	s.logger.Debug("listing stored in memory",
		"event", "memory_listing_created",
		"module", "trading/listing-engine",
		"layer", "adapter",
		"key", key.String(),
	)
	return nil
}

func (s *Store) UpdateListingPriceWithOutbox(
	_ context.Context,
	key entities.ListingKey,
	price decimal.Decimal,
	updatedAt time.Time,
	event ports.ListingEvent,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, exists := s.listings[key]
	if !exists {
		return domainerrors.ErrNotListed
	}

	payload, err := marshalListingEnvelope(event)
	if err != nil {
		return err
	}

	s.listings[key] = listing.WithPrice(price, updatedAt)
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) RemoveListingWithOutbox(_ context.Context, key entities.ListingKey, event ports.ListingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listings[key]; !exists {
		return domainerrors.ErrNotListed
	}

	payload, err := marshalListingEnvelope(event)
	if err != nil {
		return err
	}

	delete(s.listings, key)
	s.appendOutboxLocked(event, payload)
	return nil
}

// RemoveListing is a no-op on an absent key; callers have already confirmed
// presence through the guard chain.
func (s *Store) RemoveListing(_ context.Context, key entities.ListingKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listings, key)
	return nil
}

func (s *Store) PutListing(_ context.Context, listing entities.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listing.Key()] = listing
	return nil
}

func (s *Store) AppendEvent(_ context.Context, event ports.ListingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := marshalListingEnvelope(event)
	if err != nil {
		return err
	}
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	result := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		result = append(result, s.outbox[id])
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outbox[outboxID]; !exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) ListRecordedEvents(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	result := make([]ports.OutboxMessage, 0, limit)
	for i := len(s.outboxOrder) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.outbox[s.outboxOrder[i]])
	}
	return result, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	return fmt.Sprintf("evt-%d", s.sequence), nil
}

func (s *Store) appendOutboxLocked(event ports.ListingEvent, payload []byte) {
	s.outbox[event.EventID] = ports.OutboxMessage{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt.UTC(),
	}
	s.outboxOrder = append(s.outboxOrder, event.EventID)
}

// statusOf reports a row's relay status; tests use it to observe the
// notification log.
func (s *Store) statusOf(outboxID string) string {
	if _, sent := s.outboxSent[outboxID]; sent {
		return outbox.StatusSent
	}
	return outbox.StatusPending
}

// PendingCount reports how many notification rows await relay.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.outboxOrder {
		if s.statusOf(id) == outbox.StatusPending {
			count++
		}
	}
	return count
}

func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

func marshalListingEnvelope(event ports.ListingEvent) ([]byte, error) {
	return json.Marshal(buildListingEnvelope(event))
}
