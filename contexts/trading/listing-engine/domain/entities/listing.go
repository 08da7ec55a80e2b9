package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ListingKey identifies one asset inside one collection. The registry holds
// at most one active listing per key.
type ListingKey struct {
	Collection string
	TokenID    uint64
}

func (k ListingKey) String() string {
	return fmt.Sprintf("%s/%d", k.Collection, k.TokenID)
}

// Listing is a fixed-price sell offer. Seller is captured at creation time
// and never mutated for the lifetime of the listing instance.
type Listing struct {
	Collection string
	TokenID    uint64
	Price      decimal.Decimal
	Seller     string
	ListedAt   time.Time
	UpdatedAt  time.Time
}

func (l Listing) Key() ListingKey {
	return ListingKey{Collection: l.Collection, TokenID: l.TokenID}
}

// WithPrice returns a copy carrying the new price; all identity fields,
// including Seller, are preserved.
func (l Listing) WithPrice(price decimal.Decimal, updatedAt time.Time) Listing {
	l.Price = price
	l.UpdatedAt = updatedAt
	return l
}
