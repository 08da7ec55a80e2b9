package gormstore

import (
	"bazaar/contexts/trading/listing-engine/ports"
)

type listingEventPayload struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer,omitempty"`
	Price      string `json:"price,omitempty"`
}

func buildListingEnvelope(event ports.ListingEvent) ports.EventEnvelope {
	payload := listingEventPayload{
		Collection: event.Collection,
		TokenID:    event.TokenID,
		Seller:     event.Seller,
		Buyer:      event.Buyer,
	}
	if event.Price.IsPositive() {
		payload.Price = event.Price.String()
	}
	return ports.EventEnvelope{
		EventID:        event.EventID,
		EventType:      event.EventType,
		SourceService:  "bazaar",
		OccurredAtUTC:  event.OccurredAt.UTC(),
		CorrelationID:  event.EventID,
		EntityType:     "listing",
		EntityID:       event.PartitionKey,
		PayloadVersion: 1,
		Payload:        payload,
	}
}
