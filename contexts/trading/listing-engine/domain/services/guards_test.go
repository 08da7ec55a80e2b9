package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/contexts/trading/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/trading/listing-engine/domain/errors"
)

func validInput() GuardInput {
	listing := entities.Listing{
		Collection: "0xabc",
		TokenID:    1,
		Price:      decimal.RequireFromString("10"),
		Seller:     "seller_1",
		ListedAt:   time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	return GuardInput{
		Collection:       "0xabc",
		Caller:           "seller_1",
		Price:            decimal.RequireFromString("10"),
		Listing:          &listing,
		Owner:            "seller_1",
		ApprovedOperator: "bazaar-engine",
		Operator:         "bazaar-engine",
	}
}

func TestValidCollectionRejectsEmptyAndZeroAddress(t *testing.T) {
	for _, collection := range []string{"", "  ", "0x0000000000000000000000000000000000000000"} {
		in := validInput()
		in.Collection = collection
		if err := ValidCollection(in); !errors.Is(err, domainerrors.ErrInvalidCollection) {
			t.Fatalf("collection %q: expected ErrInvalidCollection, got %v", collection, err)
		}
	}
}

func TestValidPriceRejectsZeroAndNegative(t *testing.T) {
	for _, price := range []string{"0", "-1"} {
		in := validInput()
		in.Price = decimal.RequireFromString(price)
		if err := ValidPrice(in); !errors.Is(err, domainerrors.ErrInvalidPrice) {
			t.Fatalf("price %s: expected ErrInvalidPrice, got %v", price, err)
		}
	}
}

func TestNotListedAndIsListedAreComplements(t *testing.T) {
	in := validInput()
	if err := NotListed(in); !errors.Is(err, domainerrors.ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed with standing listing, got %v", err)
	}
	if err := IsListed(in); err != nil {
		t.Fatalf("expected IsListed to pass with standing listing, got %v", err)
	}

	in.Listing = nil
	if err := NotListed(in); err != nil {
		t.Fatalf("expected NotListed to pass without listing, got %v", err)
	}
	if err := IsListed(in); !errors.Is(err, domainerrors.ErrNotListed) {
		t.Fatalf("expected ErrNotListed without listing, got %v", err)
	}
}

func TestIsCurrentOwnerComparesCallerToOwner(t *testing.T) {
	in := validInput()
	if err := IsCurrentOwner(in); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}

	in.Caller = "intruder_1"
	if err := IsCurrentOwner(in); !errors.Is(err, domainerrors.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestHasApprovalRequiresMatchingOperator(t *testing.T) {
	in := validInput()
	if err := HasApproval(in); err != nil {
		t.Fatalf("expected approval to pass, got %v", err)
	}

	in.ApprovedOperator = "other-operator"
	if err := HasApproval(in); !errors.Is(err, domainerrors.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}

	in.ApprovedOperator = ""
	if err := HasApproval(in); !errors.Is(err, domainerrors.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved with no approval, got %v", err)
	}
}

func TestRunShortCircuitsOnFirstFailure(t *testing.T) {
	calls := 0
	failing := func(GuardInput) error {
		calls++
		return domainerrors.ErrInvalidCollection
	}
	never := func(GuardInput) error {
		t.Fatal("guard after failure must not run")
		return nil
	}

	err := Run(validInput(), failing, never)
	if !errors.Is(err, domainerrors.ErrInvalidCollection) {
		t.Fatalf("expected first guard error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one guard call, got %d", calls)
	}
}

func TestCreateListingGuardChainOrder(t *testing.T) {
	// Invalid collection and missing approval together must surface the
	// collection error first.
	in := validInput()
	in.Collection = ""
	in.ApprovedOperator = ""
	in.Listing = nil

	err := Run(in, CreateListingGuards...)
	if !errors.Is(err, domainerrors.ErrInvalidCollection) {
		t.Fatalf("expected ErrInvalidCollection first, got %v", err)
	}
}
