package listingengine

import (
	"log/slog"

	httpadapter "bazaar/contexts/trading/listing-engine/adapters/http"
	"bazaar/contexts/trading/listing-engine/adapters/memory"
	"bazaar/contexts/trading/listing-engine/application/commands"
	"bazaar/contexts/trading/listing-engine/application/queries"
	"bazaar/contexts/trading/listing-engine/ports"
)

// DefaultOperator is the engine identity the external asset registry must
// approve before a listing can be created. Production wiring overrides it
// from config.
const DefaultOperator = "bazaar-engine"

// Module is the composition surface for the listing engine.
// Runtime wiring should consume Handler; the adapters are exposed for
// tests/inspection.
type Module struct {
	Handler  httpadapter.Handler
	Store    *memory.Store
	Assets   *memory.AssetRegistry
	Payments *memory.Ledger
}

type Dependencies struct {
	Listings    ports.ListingRepository
	Events      ports.EventLog
	Assets      ports.AssetRegistry
	Payments    ports.PaymentGateway
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Operator    string
	Logger      *slog.Logger
}

// NewModule wires the four operations and the read surface against explicit
// ports.
func NewModule(deps Dependencies) Module {
	operator := deps.Operator
	if operator == "" {
		operator = DefaultOperator
	}

	createListing := commands.CreateListingUseCase{
		Listings:    deps.Listings,
		Assets:      deps.Assets,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Operator:    operator,
		Logger:      deps.Logger,
	}
	cancelListing := commands.CancelListingUseCase{
		Listings:    deps.Listings,
		Assets:      deps.Assets,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	updateListing := commands.UpdateListingUseCase{
		Listings:    deps.Listings,
		Assets:      deps.Assets,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	purchaseListing := commands.PurchaseListingUseCase{
		Listings:    deps.Listings,
		Assets:      deps.Assets,
		Payments:    deps.Payments,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	getListing := queries.GetListingUseCase{
		Listings: deps.Listings,
		Logger:   deps.Logger,
	}
	listListings := queries.ListListingsUseCase{
		Listings: deps.Listings,
		Logger:   deps.Logger,
	}
	listEvents := queries.ListEventsUseCase{
		Events: deps.Events,
		Logger: deps.Logger,
	}

	handler := httpadapter.Handler{
		CreateListing:   createListing,
		CancelListing:   cancelListing,
		UpdateListing:   updateListing,
		PurchaseListing: purchaseListing,
		GetListing:      getListing,
		ListListings:    listListings,
		ListEvents:      listEvents,
		Logger:          deps.Logger,
	}

	return Module{Handler: handler}
}

// NewInMemoryModule wires the engine against in-memory adapters: the mutex
// store as listing registry, a seedable asset registry, and a balance
// ledger. This is the developer/test bootstrap path.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	assets := memory.NewAssetRegistry()
	payments := memory.NewLedger()

	module := NewModule(Dependencies{
		Listings:    store,
		Events:      store,
		Assets:      assets,
		Payments:    payments,
		Clock:       store,
		IDGenerator: store,
		Operator:    DefaultOperator,
		Logger:      logger,
	})
	module.Store = store
	module.Assets = assets
	module.Payments = payments
	return module
}
