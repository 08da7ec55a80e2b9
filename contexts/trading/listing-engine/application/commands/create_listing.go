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

const createdEventType = "market.listing.created"

type CreateListingCommand struct {
	Collection string
	TokenID    uint64
	Caller     string
	Price      decimal.Decimal
}

type CreateListingResult struct {
	Listing entities.Listing
}

type CreateListingUseCase struct {
	Listings    ports.ListingRepository
	Assets      ports.AssetRegistry
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Operator    string
	Logger      *slog.Logger
}

// Execute runs the create workflow in this order:
// 1) pure input guards (collection, price)
// 2) fresh snapshot load (listing, owner, approval)
// 3) full guard chain
// 4) atomic listing + outbox persistence.
func (u CreateListingUseCase) Execute(ctx context.Context, cmd CreateListingCommand) (CreateListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if caller == "" {
		return CreateListingResult{}, domainerrors.ErrInvalidRequest
	}

	in := services.GuardInput{
		Collection: cmd.Collection,
		Caller:     caller,
		Price:      cmd.Price,
		Operator:   u.Operator,
	}
	if err := services.Run(in, services.ValidCollection, services.ValidPrice); err != nil {
		return CreateListingResult{}, err
	}

	logger.Info("create listing started",
		"event", "create_listing_started",
		"module", "trading/listing-engine",
		"layer", "application",
		"collection", cmd.Collection,
		"token_id", cmd.TokenID,
		"caller", caller,
	)

	key := entities.ListingKey{Collection: cmd.Collection, TokenID: cmd.TokenID}
	if existing, found, err := u.Listings.GetListing(ctx, key); err != nil {
		logger.Error("create listing failed loading listing",
			"event", "create_listing_get_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CreateListingResult{}, err
	} else if found {
		in.Listing = &existing
	}

	owner, err := u.Assets.OwnerOf(ctx, cmd.Collection, cmd.TokenID)
	if err != nil {
		logger.Error("create listing failed resolving owner",
			"event", "create_listing_owner_lookup_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CreateListingResult{}, err
	}
	approved, err := u.Assets.ApprovedOperator(ctx, cmd.Collection, cmd.TokenID)
	if err != nil {
		logger.Error("create listing failed resolving approval",
			"event", "create_listing_approval_lookup_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CreateListingResult{}, err
	}
	in.Owner = owner
	in.ApprovedOperator = approved

	if err := services.Run(in, services.CreateListingGuards...); err != nil {
		logger.Warn("create listing rejected by guards",
			"event", "create_listing_rejected",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"caller", caller,
			"error", err.Error(),
		)
		return CreateListingResult{}, err
	}

	now := u.now()
	listing := entities.Listing{
		Collection: cmd.Collection,
		TokenID:    cmd.TokenID,
		Price:      cmd.Price,
		Seller:     caller,
		ListedAt:   now,
		UpdatedAt:  now,
	}

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CreateListingResult{}, err
	}
	event := ports.ListingEvent{
		EventID:      eventID,
		EventType:    createdEventType,
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		Price:        listing.Price,
		PartitionKey: key.String(),
		OccurredAt:   now,
	}

	// Write boundary: listing row and created event are committed together
	// by the repository adapter.
	if err := u.Listings.CreateListingWithOutbox(ctx, listing, event); err != nil {
		logger.Error("create listing failed on write transaction",
			"event", "create_listing_write_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return CreateListingResult{}, err
	}

	logger.Info("listing created",
		"event", "listing_created",
		"module", "trading/listing-engine",
		"layer", "application",
		"key", key.String(),
		"seller", listing.Seller,
		"price", listing.Price.String(),
	)

	return CreateListingResult{Listing: listing}, nil
}

func (u CreateListingUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
