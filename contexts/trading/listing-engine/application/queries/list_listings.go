package queries

import (
	"context"
	"log/slog"

	application "bazaar/contexts/trading/listing-engine/application"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	"bazaar/contexts/trading/listing-engine/ports"
)

const maxListingPageSize = 50

type ListListingsQuery struct {
	Collection string
	Seller     string
	Cursor     string
	Limit      int
}

type ListListingsResult struct {
	Items      []entities.Listing
	NextCursor string
}

type ListListingsUseCase struct {
	Listings ports.ListingRepository
	Logger   *slog.Logger
}

func (u ListListingsUseCase) Execute(ctx context.Context, query ListListingsQuery) (ListListingsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if query.Limit < 0 || query.Limit > maxListingPageSize {
		return ListListingsResult{}, domainerrors.ErrInvalidRequest
	}

	items, nextCursor, err := u.Listings.ListListings(ctx, ports.ListingFilter{
		Collection: query.Collection,
		Seller:     query.Seller,
		Cursor:     query.Cursor,
		Limit:      query.Limit,
	})
	if err != nil {
		logger.Error("list listings failed",
			"event", "list_listings_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"error", err.Error(),
		)
		return ListListingsResult{}, err
	}
	return ListListingsResult{Items: items, NextCursor: nextCursor}, nil
}
