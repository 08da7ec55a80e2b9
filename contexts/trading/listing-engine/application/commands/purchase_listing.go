package commands

import (
	"context"
	"fmt"
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

const purchasedEventType = "market.listing.purchased"

type PurchaseListingCommand struct {
	Collection     string
	TokenID        uint64
	Buyer          string
	AttachedAmount decimal.Decimal
}

type PurchaseListingResult struct {
	Collection  string
	TokenID     uint64
	Price       decimal.Decimal
	Seller      string
	Buyer       string
	PurchasedAt time.Time
}

type PurchaseListingUseCase struct {
	Listings    ports.ListingRepository
	Assets      ports.AssetRegistry
	Payments    ports.PaymentGateway
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute runs the atomic exchange in this order:
// 1) guards + exact payment check
// 2) registry removal (state change before external effects, so a reentrant
//    call cannot reuse the still-present listing)
// 3) asset transfer recorded-seller -> buyer
// 4) payment forward buyer -> recorded-seller
// 5) purchased event append.
// Any failure after step 2 compensates the completed steps and reinstates
// the listing, so registry state and asset ownership are unchanged on error.
// Payment goes to the seller recorded at creation time; if the asset changed
// hands outside the engine the transfer step fails and the whole operation
// rolls back.
func (u PurchaseListingUseCase) Execute(ctx context.Context, cmd PurchaseListingCommand) (PurchaseListingResult, error) {
	logger := application.ResolveLogger(u.Logger)
	buyer := strings.TrimSpace(cmd.Buyer)
	if buyer == "" {
		return PurchaseListingResult{}, domainerrors.ErrInvalidRequest
	}

	in := services.GuardInput{Collection: cmd.Collection, Caller: buyer}
	if err := services.Run(in, services.ValidCollection); err != nil {
		return PurchaseListingResult{}, err
	}

	key := entities.ListingKey{Collection: cmd.Collection, TokenID: cmd.TokenID}
	listing, found, err := u.Listings.GetListing(ctx, key)
	if err != nil {
		logger.Error("purchase listing failed loading listing",
			"event", "purchase_listing_get_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return PurchaseListingResult{}, err
	}
	if found {
		in.Listing = &listing
	}

	if err := services.Run(in, services.PurchaseListingGuards...); err != nil {
		logger.Warn("purchase listing rejected by guards",
			"event", "purchase_listing_rejected",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"buyer", buyer,
			"error", err.Error(),
		)
		return PurchaseListingResult{}, err
	}

	// No overpayment or underpayment tolerance.
	if !cmd.AttachedAmount.Equal(listing.Price) {
		logger.Warn("purchase listing payment mismatch",
			"event", "purchase_listing_incorrect_payment",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"buyer", buyer,
			"attached", cmd.AttachedAmount.String(),
			"price", listing.Price.String(),
		)
		return PurchaseListingResult{}, domainerrors.ErrIncorrectPayment
	}

	if err := u.Listings.RemoveListing(ctx, key); err != nil {
		logger.Error("purchase listing failed removing listing",
			"event", "purchase_listing_remove_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return PurchaseListingResult{}, err
	}

	if err := u.Assets.Transfer(ctx, cmd.Collection, cmd.TokenID, listing.Seller, buyer); err != nil {
		u.reinstate(ctx, logger, listing)
		logger.Error("purchase listing asset transfer failed",
			"event", "purchase_listing_transfer_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"seller", listing.Seller,
			"buyer", buyer,
			"error", err.Error(),
		)
		return PurchaseListingResult{}, fmt.Errorf("%w: %s", domainerrors.ErrSettlementTransferFailed, err)
	}

	if err := u.Payments.Forward(ctx, buyer, listing.Seller, listing.Price); err != nil {
		u.transferBack(ctx, logger, listing, buyer)
		u.reinstate(ctx, logger, listing)
		logger.Error("purchase listing payment forward failed",
			"event", "purchase_listing_payment_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"seller", listing.Seller,
			"buyer", buyer,
			"error", err.Error(),
		)
		return PurchaseListingResult{}, fmt.Errorf("%w: %s", domainerrors.ErrSettlementTransferFailed, err)
	}

	now := u.now()
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return PurchaseListingResult{}, err
	}
	event := ports.ListingEvent{
		EventID:      eventID,
		EventType:    purchasedEventType,
		Collection:   listing.Collection,
		TokenID:      listing.TokenID,
		Seller:       listing.Seller,
		Buyer:        buyer,
		Price:        listing.Price,
		PartitionKey: key.String(),
		OccurredAt:   now,
	}
	if err := u.Listings.AppendEvent(ctx, event); err != nil {
		// Unwind in reverse order so the failed operation leaves balances,
		// ownership, and registry state exactly as found.
		if refundErr := u.Payments.Forward(ctx, listing.Seller, buyer, listing.Price); refundErr != nil {
			logger.Error("purchase compensation refund failed",
				"event", "purchase_listing_compensation_refund_failed",
				"module", "trading/listing-engine",
				"layer", "application",
				"key", key.String(),
				"error", refundErr.Error(),
			)
		}
		u.transferBack(ctx, logger, listing, buyer)
		u.reinstate(ctx, logger, listing)
		logger.Error("purchase listing event append failed",
			"event", "purchase_listing_event_append_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", key.String(),
			"error", err.Error(),
		)
		return PurchaseListingResult{}, err
	}

	logger.Info("listing purchased",
		"event", "listing_purchased",
		"module", "trading/listing-engine",
		"layer", "application",
		"key", key.String(),
		"seller", listing.Seller,
		"buyer", buyer,
		"price", listing.Price.String(),
	)

	return PurchaseListingResult{
		Collection:  listing.Collection,
		TokenID:     listing.TokenID,
		Price:       listing.Price,
		Seller:      listing.Seller,
		Buyer:       buyer,
		PurchasedAt: now,
	}, nil
}

func (u PurchaseListingUseCase) reinstate(ctx context.Context, logger *slog.Logger, listing entities.Listing) {
	if err := u.Listings.PutListing(ctx, listing); err != nil {
		logger.Error("purchase compensation reinstate failed",
			"event", "purchase_listing_compensation_reinstate_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", listing.Key().String(),
			"error", err.Error(),
		)
	}
}

func (u PurchaseListingUseCase) transferBack(ctx context.Context, logger *slog.Logger, listing entities.Listing, buyer string) {
	if err := u.Assets.Transfer(ctx, listing.Collection, listing.TokenID, buyer, listing.Seller); err != nil {
		logger.Error("purchase compensation transfer-back failed",
			"event", "purchase_listing_compensation_transfer_failed",
			"module", "trading/listing-engine",
			"layer", "application",
			"key", listing.Key().String(),
			"error", err.Error(),
		)
	}
}

func (u PurchaseListingUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
