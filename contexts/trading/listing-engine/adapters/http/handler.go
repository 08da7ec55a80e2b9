package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "bazaar/contexts/trading/listing-engine/application"
	"bazaar/contexts/trading/listing-engine/application/commands"
	"bazaar/contexts/trading/listing-engine/application/queries"
	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	httptransport "bazaar/contexts/trading/listing-engine/transport/http"

	"github.com/shopspring/decimal"
)

type Handler struct {
	CreateListing   commands.CreateListingUseCase
	CancelListing   commands.CancelListingUseCase
	UpdateListing   commands.UpdateListingUseCase
	PurchaseListing commands.PurchaseListingUseCase
	GetListing      queries.GetListingUseCase
	ListListings    queries.ListListingsUseCase
	ListEvents      queries.ListEventsUseCase
	Logger          *slog.Logger
}

// CreateListingHandler godoc
// @Summary List an asset for sale
// @Description Creates a fixed-price listing for an asset the caller owns.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Seller identity"
// @Param request body httptransport.CreateListingRequest true "Listing payload"
// @Success 201 {object} httptransport.ListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 424 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings [post]
func (h Handler) CreateListingHandler(ctx context.Context, caller string, req httptransport.CreateListingRequest) (httptransport.ListingResponse, error) {
	logger := application.ResolveLogger(h.Logger)

	price, err := parseAmount(req.Price)
	if err != nil {
		return httptransport.ListingResponse{}, domainerrors.ErrInvalidPrice
	}

	result, err := h.CreateListing.Execute(ctx, commands.CreateListingCommand{
		Collection: req.Collection,
		TokenID:    req.TokenID,
		Caller:     caller,
		Price:      price,
	})
	if err != nil {
		logger.Error("create listing request failed",
			"event", "http_create_listing_failed",
			"module", "trading/listing-engine",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Listing)}, nil
}

// CancelListingHandler godoc
// @Summary Cancel a listing
// @Description Removes the listing; only the asset's current owner may cancel.
// @Tags listing-engine
// @Produce json
// @Param X-User-Id header string true "Caller identity"
// @Param collection path string true "Collection identity"
// @Param token_id path int true "Asset id"
// @Success 200 {object} httptransport.CancelListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings/{collection}/{token_id} [delete]
func (h Handler) CancelListingHandler(ctx context.Context, caller, collection string, tokenID uint64) (httptransport.CancelListingResponse, error) {
	result, err := h.CancelListing.Execute(ctx, commands.CancelListingCommand{
		Collection: collection,
		TokenID:    tokenID,
		Caller:     caller,
	})
	if err != nil {
		return httptransport.CancelListingResponse{}, err
	}
	return httptransport.CancelListingResponse{
		Collection: result.Listing.Collection,
		TokenID:    result.Listing.TokenID,
		Seller:     result.Listing.Seller,
		Canceled:   true,
	}, nil
}

// UpdateListingHandler godoc
// @Summary Update a listing price
// @Description Mutates the price in place; seller identity is preserved.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller identity"
// @Param collection path string true "Collection identity"
// @Param token_id path int true "Asset id"
// @Param request body httptransport.UpdateListingRequest true "Price payload"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings/{collection}/{token_id} [patch]
func (h Handler) UpdateListingHandler(ctx context.Context, caller, collection string, tokenID uint64, req httptransport.UpdateListingRequest) (httptransport.ListingResponse, error) {
	newPrice, err := parseAmount(req.NewPrice)
	if err != nil {
		return httptransport.ListingResponse{}, domainerrors.ErrInvalidPrice
	}

	result, err := h.UpdateListing.Execute(ctx, commands.UpdateListingCommand{
		Collection: collection,
		TokenID:    tokenID,
		Caller:     caller,
		NewPrice:   newPrice,
	})
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Listing)}, nil
}

// PurchaseListingHandler godoc
// @Summary Purchase a listed asset
// @Description Atomically removes the listing, transfers the asset, and forwards the exact attached amount to the recorded seller.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Buyer identity"
// @Param collection path string true "Collection identity"
// @Param token_id path int true "Asset id"
// @Param request body httptransport.PurchaseListingRequest true "Payment payload"
// @Success 200 {object} httptransport.PurchaseListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 424 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings/{collection}/{token_id}/purchase [post]
func (h Handler) PurchaseListingHandler(ctx context.Context, buyer, collection string, tokenID uint64, req httptransport.PurchaseListingRequest) (httptransport.PurchaseListingResponse, error) {
	logger := application.ResolveLogger(h.Logger)

	attached, err := parseAmount(req.AttachedAmount)
	if err != nil {
		return httptransport.PurchaseListingResponse{}, domainerrors.ErrIncorrectPayment
	}

	result, err := h.PurchaseListing.Execute(ctx, commands.PurchaseListingCommand{
		Collection:     collection,
		TokenID:        tokenID,
		Buyer:          buyer,
		AttachedAmount: attached,
	})
	if err != nil {
		logger.Error("purchase listing request failed",
			"event", "http_purchase_listing_failed",
			"module", "trading/listing-engine",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.PurchaseListingResponse{}, err
	}
	return httptransport.PurchaseListingResponse{
		Collection:  result.Collection,
		TokenID:     result.TokenID,
		Price:       result.Price.String(),
		Seller:      result.Seller,
		Buyer:       result.Buyer,
		PurchasedAt: formatTime(result.PurchasedAt),
	}, nil
}

// GetListingHandler godoc
// @Summary Get one active listing
// @Tags listing-engine
// @Produce json
// @Param collection path string true "Collection identity"
// @Param token_id path int true "Asset id"
// @Success 200 {object} httptransport.ListingResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings/{collection}/{token_id} [get]
func (h Handler) GetListingHandler(ctx context.Context, collection string, tokenID uint64) (httptransport.ListingResponse, error) {
	result, err := h.GetListing.Execute(ctx, queries.GetListingQuery{
		Collection: collection,
		TokenID:    tokenID,
	})
	if err != nil {
		return httptransport.ListingResponse{}, err
	}
	return httptransport.ListingResponse{Item: mapListing(result.Listing)}, nil
}

// ListListingsHandler godoc
// @Summary List active listings
// @Description Returns the public listing mapping with cursor pagination.
// @Tags listing-engine
// @Produce json
// @Param collection query string false "Collection filter"
// @Param seller query string false "Seller filter"
// @Param cursor query string false "Cursor token"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {object} httptransport.ListListingsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/listings [get]
func (h Handler) ListListingsHandler(ctx context.Context, collection, seller, cursor string, limit int) (httptransport.ListListingsResponse, error) {
	result, err := h.ListListings.Execute(ctx, queries.ListListingsQuery{
		Collection: collection,
		Seller:     seller,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListListingsResponse{}, err
	}

	items := make([]httptransport.ListingDTO, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, mapListing(listing))
	}
	return httptransport.ListListingsResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	}, nil
}

// ListEventsHandler godoc
// @Summary Read the notification log
// @Description Returns recorded state-change events, newest first.
// @Tags listing-engine
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/market/events [get]
func (h Handler) ListEventsHandler(ctx context.Context, limit int) (httptransport.ListEventsResponse, error) {
	result, err := h.ListEvents.Execute(ctx, queries.ListEventsQuery{Limit: limit})
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}

	items := make([]httptransport.EventDTO, 0, len(result.Items))
	for _, envelope := range result.Items {
		items = append(items, httptransport.EventDTO{
			EventID:    envelope.EventID,
			EventType:  envelope.EventType,
			EntityID:   envelope.EntityID,
			OccurredAt: formatTime(envelope.OccurredAtUTC),
			Payload:    envelope.Payload,
		})
	}
	return httptransport.ListEventsResponse{Items: items}, nil
}

func mapListing(listing entities.Listing) httptransport.ListingDTO {
	return httptransport.ListingDTO{
		Collection: listing.Collection,
		TokenID:    listing.TokenID,
		Price:      listing.Price.String(),
		Seller:     listing.Seller,
		ListedAt:   formatTime(listing.ListedAt),
		UpdatedAt:  formatTime(listing.UpdatedAt),
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
