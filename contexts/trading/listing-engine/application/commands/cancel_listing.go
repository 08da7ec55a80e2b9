package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "bazaar/contexts/trading/listing-engine/application"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/domain/services"
	"bazaar/contexts/trading/listing-engine/ports"
)

const canceledEventType = "market.listing.canceled"

type CancelListingCommand struct {
	Collection string
	TokenID    uint64
	Caller     string
}

type CancelListingResult struct {
	Listing entities.Listing
}

type CancelListingUseCase struct {
	Listings    ports.ListingRepository
	Assets      ports.AssetRegistry
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute re-validates against the asset's current owner, not the recorded
// seller: if ownership moved outside the engine, the new owner controls the
// stale listing.
func (u CancelListingUseCase) Execute(ctx context.Context, cmd CancelListingCommand) (CancelListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return CancelListingResult{}, domainerrors.ErrInvalidRequest
	}

	in := services.GuardInput{Collection: cmd.Collection, Caller: caller}
	if err := services.Run(in, services.ValidCollection); err != nil {
		return CancelListingResult{}, err
	}

	key := entities.ListingKey{Collection: cmd.Collection, TokenID: cmd.TokenID}
	listing, found, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		logger.Error("cancel listing failed loading listing",
			"event", "cancel_listing_get_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CancelListingResult{}, err
	}
	if found {
		in.Listing = &listing

		owner, err := u.Assets.OwnerOf(ctx, cmd.Collection, cmd.TokenID)
		if err != nil {
			logger.Error("cancel listing failed resolving owner",
				"event", "cancel_listing_owner_lookup_failed",
				"module", "trading/listing-engine",
				"layer", "application",
				"key", key.String(),
				"error", err.Error(),
			)
			return CancelListingResult{}, err
		}
		in.Owner = owner
	}

	if err := services.Run(in, services.CancelListingGuards...); err != nil {
		logger.Warn("cancel listing rejected by guards",
			"event", "cancel_listing_rejected",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"caller", caller,
			"error", err.Error(),
		)
		return CancelListingResult{}, err
	}

	now := u.now()
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CancelListingResult{}, err
	}
	event := ports.ListingEvent{
		EventID:      eventID,
		EventType:    canceledEventType,
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		PartitionKey: key.String(),
		OccurredAt:   now,
	}

	if err := u.Listings.RemoveListingWithOutbox(ctx, key, event); err != nil {
		logger.Error("cancel listing failed on write transaction",
			"event", "cancel_listing_write_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CancelListingResult{}, err
	}

	logger.Info("listing canceled",
		"event", "listing_canceled",
		"module", "trading/listing-engine",
		"layer", "application",
		"key", key.String(),
		"seller", listing.Seller,
		"caller", caller,
	)

	return CancelListingResult{Listing: listing}, nil
}

func (u CancelListingUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
