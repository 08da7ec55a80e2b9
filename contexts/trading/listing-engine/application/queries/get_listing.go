package queries

import (
	"context"
	"log/slog"

	application "bazaar/contexts/trading/listing-engine/application"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/domain/services"
	"bazaar/contexts/trading/listing-engine/ports"
)

type GetListingQuery struct {
	Collection string
	TokenID    uint64
}

type GetListingResult struct {
	Listing entities.Listing
}

type GetListingUseCase struct {
	Listings ports.ListingRepository
	Logger   *slog.Logger
}

func (u GetListingUseCase) Execute(ctx context.Context, query GetListingQuery) (GetListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if err := services.Run(services.GuardInput{Collection: query.Collection}, services.ValidCollection); err != nil {
		return GetListingResult{}, err
	}

	key := entities.ListingKey{Collection: query.Collection, TokenID: query.TokenID}
	listing, found, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		logger.Error("get listing failed",
			"event", "get_listing_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return GetListingResult{}, err
	}
	if !found {
		return GetListingResult{}, domainerrors.ErrNotListed
	}
	return GetListingResult{Listing: listing}, nil
}
