package services

import (
	"strings"

	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"

	"github.com/shopspring/decimal"
)

// GuardInput is the per-operation snapshot guards evaluate against. Owner and
// ApprovedOperator come fresh from the external asset registry inside the
// same operation; they are never cached across operations.
type GuardInput struct {
	Collection       string
	Caller           string
	Price            decimal.Decimal
	Listing          *entities.Listing
	Owner            string
	ApprovedOperator string
	Operator         string
}

// Guard is one precondition validator. It returns nil to pass or a domain
// sentinel error to fail the operation.
type Guard func(GuardInput) error

// Run evaluates guards in the given order and short-circuits on the first
// failure. Callers mutate no state until Run returns nil.
func Run(in GuardInput, guards ...Guard) error {
	for _, guard := range guards {
		if err := guard(in); err != nil {
			return err
		}
	}
	return nil
}

// zeroAddress is the conventional null identity of external asset registries.
const zeroAddress = "0x0000000000000000000000000000000000000000"

func ValidCollection(in GuardInput) error {
	collection := strings.TrimSpace(in.Collection)
	if collection == "" || strings.EqualFold(collection, zeroAddress) {
		return domainerrors.ErrInvalidCollection
	}
	return nil
}

func ValidPrice(in GuardInput) error {
	if !in.Price.IsPositive() {
		return domainerrors.ErrInvalidPrice
	}
	return nil
}

func NotListed(in GuardInput) error {
	if in.Listing != nil {
		return domainerrors.ErrAlreadyListed
	}
	return nil
}

func IsListed(in GuardInput) error {
	if in.Listing == nil {
		return domainerrors.ErrNotListed
	}
	return nil
}

func IsCurrentOwner(in GuardInput) error {
	if in.Caller == "" || in.Caller != in.Owner {
		return domainerrors.ErrNotOwner
	}
	return nil
}

func HasApproval(in GuardInput) error {
	if in.ApprovedOperator == "" || in.ApprovedOperator != in.Operator {
		return domainerrors.ErrNotApproved
	}
	return nil
}

// Fixed guard order per operation. Commands run these chains before any
// state mutation.
var (
	CreateListingGuards   = []Guard{ValidCollection, ValidPrice, NotListed, IsCurrentOwner, HasApproval}
	CancelListingGuards   = []Guard{ValidCollection, IsListed, IsCurrentOwner}
	UpdateListingGuards   = []Guard{ValidCollection, ValidPrice, IsListed, IsCurrentOwner}
	PurchaseListingGuards = []Guard{ValidCollection, IsListed}
)
