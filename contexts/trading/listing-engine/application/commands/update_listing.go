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

	"github.com/shopspring/decimal"
)

const updatedEventType = "market.listing.updated"

type UpdateListingCommand struct {
	Collection string
	TokenID    uint64
	Caller     string
	NewPrice   decimal.Decimal
}

type UpdateListingResult struct {
	Listing entities.Listing
}

type UpdateListingUseCase struct {
	Listings    ports.ListingRepository
	Assets      ports.AssetRegistry
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute mutates the price in place. The recorded seller survives the
// update; only cancel or purchase destroys the listing instance.
func (u UpdateListingUseCase) Execute(ctx context.Context, cmd UpdateListingCommand) (UpdateListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return UpdateListingResult{}, domainerrors.ErrInvalidRequest
	}

	in := services.GuardInput{
		Collection: cmd.Collection,
		Caller:     caller,
		Price:      cmd.NewPrice,
	}
	if err := services.Run(in, services.ValidCollection, services.ValidPrice); err != nil {
		return UpdateListingResult{}, err
	}

	key := entities.ListingKey{Collection: cmd.Collection, TokenID: cmd.TokenID}
	listing, found, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		logger.Error("update listing failed loading listing",
			"event", "update_listing_get_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return UpdateListingResult{}, err
	}
	if found {
		in.Listing = &listing

		owner, err := u.Assets.OwnerOf(ctx, cmd.Collection, cmd.TokenID)
		if err != nil {
			logger.Error("update listing failed resolving owner",
				"event", "update_listing_owner_lookup_failed",
				"module", "trading/listing-engine",
				"layer", "application",
				"key", key.String(),
				"error", err.Error(),
			)
			return UpdateListingResult{}, err
		}
		in.Owner = owner
	}

	if err := services.Run(in, services.UpdateListingGuards...); err != nil {
		logger.Warn("update listing rejected by guards",
			"event", "update_listing_rejected",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"caller", caller,
			"error", err.Error(),
		)
		return UpdateListingResult{}, err
	}

	now := u.now()
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return UpdateListingResult{}, err
	}
	event := ports.ListingEvent{
		EventID:      eventID,
		EventType:    updatedEventType,
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		Price:        cmd.NewPrice,
		PartitionKey: key.String(),
		OccurredAt:   now,
	}

	if err := u.Listings.UpdateListingPriceWithOutbox(ctx, key, cmd.NewPrice, now, event); err != nil {
		logger.Error("update listing failed on write transaction",
			"event", "update_listing_write_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return UpdateListingResult{}, err
	}

	updated := listing.WithPrice(cmd.NewPrice, now)

	logger.Info("listing updated",
		"event", "listing_updated",
		"module", "trading/listing-engine",
		"layer", "application",
		"key", key.String(),
		"seller", updated.Seller,
		"new_price", updated.Price.String(),
	)

	return UpdateListingResult{Listing: updated}, nil
}

func (u UpdateListingUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
