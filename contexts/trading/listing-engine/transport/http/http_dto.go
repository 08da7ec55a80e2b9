package httptransport

// Prices and amounts travel as decimal strings to avoid float rounding on
// the wire.

type CreateListingRequest struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
	Price      string `json:"price"`
}

type UpdateListingRequest struct {
	NewPrice string `json:"new_price"`
}

type PurchaseListingRequest struct {
	AttachedAmount string `json:"attached_amount"`
}

type ListingDTO struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
	Price      string `json:"price"`
	Seller     string `json:"seller"`
	ListedAt   string `json:"listed_at"`
	UpdatedAt  string `json:"updated_at"`
}

type ListingResponse struct {
	Item ListingDTO `json:"item"`
}

type ListListingsResponse struct {
	Items      []ListingDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type CancelListingResponse struct {
	Collection string `json:"collection"`
	TokenID    uint64 `json:"token_id"`
	Seller     string `json:"seller"`
	Canceled   bool   `json:"canceled"`
}

type PurchaseListingResponse struct {
	Collection  string `json:"collection"`
	TokenID     uint64 `json:"token_id"`
	Price       string `json:"price"`
	Seller      string `json:"seller"`
	Buyer       string `json:"buyer"`
	PurchasedAt string `json:"purchased_at"`
}

type EventDTO struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

type ListEventsResponse struct {
	Items []EventDTO `json:"items"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
