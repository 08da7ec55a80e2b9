package memory

import (
	"context"
	"fmt"
	"sync"

	"bazaar/contexts/trading/listing-engine/domain/entities"
)

// AssetRegistry is an in-memory stand-in for the external ownership oracle.
// Tests seed owners/approvals and can inject transfer failures to exercise
// the settlement compensation path.
type AssetRegistry struct {
	mu          sync.Mutex
	owners      map[entities.ListingKey]string
	approvals   map[entities.ListingKey]string
	transferErr error
}

func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		owners:    make(map[entities.ListingKey]string),
		approvals: make(map[entities.ListingKey]string),
	}
}

func (r *AssetRegistry) SetOwner(collection string, tokenID uint64, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[entities.ListingKey{Collection: collection, TokenID: tokenID}] = owner
}

func (r *AssetRegistry) SetApprovedOperator(collection string, tokenID uint64, operator string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals[entities.ListingKey{Collection: collection, TokenID: tokenID}] = operator
}

// FailTransfers makes every subsequent Transfer return err; pass nil to
// restore normal behavior.
func (r *AssetRegistry) FailTransfers(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transferErr = err
}

func (r *AssetRegistry) OwnerOf(_ context.Context, collection string, tokenID uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entities.ListingKey{Collection: collection, TokenID: tokenID}
	owner, ok := r.owners[key]
	if !ok {
		return "", fmt.Errorf("asset registry: unknown asset %s", key)
	}
	return owner, nil
}

func (r *AssetRegistry) ApprovedOperator(_ context.Context, collection string, tokenID uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Absent approval is a valid registry answer, not an error.
	return r.approvals[entities.ListingKey{Collection: collection, TokenID: tokenID}], nil
}

func (r *AssetRegistry) Transfer(_ context.Context, collection string, tokenID uint64, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.transferErr != nil {
		return r.transferErr
	}

	key := entities.ListingKey{Collection: collection, TokenID: tokenID}
	owner, ok := r.owners[key]
	if !ok {
		return fmt.Errorf("asset registry: unknown asset %s", key)
	}
	if owner != from {
		return fmt.Errorf("asset registry: %s does not own asset %s", from, key)
	}
	r.owners[key] = to
	return nil
}
