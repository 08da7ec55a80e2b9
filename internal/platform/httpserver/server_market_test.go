package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	listingengine "bazaar/contexts/trading/listing-engine"
	markethttp "bazaar/contexts/trading/listing-engine/transport/http"
)

func newTestServer() (*Server, listingengine.Module) {
	logger := slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	module := listingengine.NewInMemoryModule(logger)
	server := New(module, nil, logger, ":0")
	return server, module
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func seedAsset(module listingengine.Module, collection string, tokenID uint64, owner string) {
	module.Assets.SetOwner(collection, tokenID, owner)
	module.Assets.SetApprovedOperator(collection, tokenID, listingengine.DefaultOperator)
}

func doJSON(server *Server, method, target, userID string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestCreateThenGetListing(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 7, "seller_1")

	createRR := doJSON(server, http.MethodPost, "/v1/market/listings", "seller_1",
		[]byte(`{"collection":"0xabc","token_id":7,"price":"150.5"}`))
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 create, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	getRR := doJSON(server, http.MethodGet, "/v1/market/listings/0xabc/7", "", nil)
	if getRR.Code != http.StatusOK {
		t.Fatalf("expected 200 get, got %d body=%s", getRR.Code, getRR.Body.String())
	}

	var resp markethttp.ListingResponse
	if err := json.Unmarshal(getRR.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if resp.Item.Seller != "seller_1" {
		t.Fatalf("expected seller_1, got %q", resp.Item.Seller)
	}
	if resp.Item.Price != "150.5" {
		t.Fatalf("expected price 150.5, got %q", resp.Item.Price)
	}
}

func TestListListingsFiltersByCollection(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 1, "seller_1")
	seedAsset(module, "0xdef", 2, "seller_1")

	for _, body := range []string{
		`{"collection":"0xabc","token_id":1,"price":"10"}`,
		`{"collection":"0xdef","token_id":2,"price":"20"}`,
	} {
		rr := doJSON(server, http.MethodPost, "/v1/market/listings", "seller_1", []byte(body))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201 create, got %d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(server, http.MethodGet, "/v1/market/listings?collection=0xabc", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 list, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp markethttp.ListListingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Collection != "0xabc" {
		t.Fatalf("expected one 0xabc listing, got %+v", resp.Items)
	}
}

func TestUpdateListingPrice(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 3, "seller_1")

	createRR := doJSON(server, http.MethodPost, "/v1/market/listings", "seller_1",
		[]byte(`{"collection":"0xabc","token_id":3,"price":"100"}`))
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 create, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	updateRR := doJSON(server, http.MethodPatch, "/v1/market/listings/0xabc/3", "seller_1",
		[]byte(`{"new_price":"80"}`))
	if updateRR.Code != http.StatusOK {
		t.Fatalf("expected 200 update, got %d body=%s", updateRR.Code, updateRR.Body.String())
	}

	var resp markethttp.ListingResponse
	if err := json.Unmarshal(updateRR.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if resp.Item.Price != "80" {
		t.Fatalf("expected price 80, got %q", resp.Item.Price)
	}
}

func TestCancelListingRemovesIt(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 4, "seller_1")

	createRR := doJSON(server, http.MethodPost, "/v1/market/listings", "seller_1",
		[]byte(`{"collection":"0xabc","token_id":4,"price":"100"}`))
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 create, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	cancelRR := doJSON(server, http.MethodDelete, "/v1/market/listings/0xabc/4", "seller_1", nil)
	if cancelRR.Code != http.StatusOK {
		t.Fatalf("expected 200 cancel, got %d body=%s", cancelRR.Code, cancelRR.Body.String())
	}

	getRR := doJSON(server, http.MethodGet, "/v1/market/listings/0xabc/4", "", nil)
	if getRR.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancel, got %d body=%s", getRR.Code, getRR.Body.String())
	}
}

func TestPurchaseListingSettlesOwnershipAndFunds(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 5, "seller_1")
	module.Payments.Credit("buyer_1", decimal.RequireFromString("500"))

	createRR := doJSON(server, http.MethodPost, "/v1/market/listings", "seller_1",
		[]byte(`{"collection":"0xabc","token_id":5,"price":"120"}`))
	if createRR.Code != http.StatusCreated {
		t.Fatalf("expected 201 create, got %d body=%s", createRR.Code, createRR.Body.String())
	}

	purchaseRR := doJSON(server, http.MethodPost, "/v1/market/listings/0xabc/5/purchase", "buyer_1",
		[]byte(`{"attached_amount":"120"}`))
	if purchaseRR.Code != http.StatusOK {
		t.Fatalf("expected 200 purchase, got %d body=%s", purchaseRR.Code, purchaseRR.Body.String())
	}

	getRR := doJSON(server, http.MethodGet, "/v1/market/listings/0xabc/5", "", nil)
	if getRR.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after purchase, got %d body=%s", getRR.Code, getRR.Body.String())
	}

	owner, err := module.Assets.OwnerOf(context.Background(), "0xabc", 5)
	if err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if owner != "buyer_1" {
		t.Fatalf("expected buyer_1 as owner, got %q", owner)
	}
	if got := module.Payments.Balance("seller_1"); !got.Equal(decimal.RequireFromString("120")) {
		t.Fatalf("expected seller balance 120, got %s", got)
	}
	if got := module.Payments.Balance("buyer_1"); !got.Equal(decimal.RequireFromString("380")) {
		t.Fatalf("expected buyer balance 380, got %s", got)
	}
}

func TestRecordedEventsAfterLifecycle(t *testing.T) {
	server, module := newTestServer()
	seedAsset(module, "0xabc", 6, "seller_1")
	module.Payments.Credit("buyer_1", decimal.RequireFromString("100"))

	steps := []struct {
		method string
		target string
		user   string
		body   string
		want   int
	}{
		{http.MethodPost, "/v1/market/listings", "seller_1", `{"collection":"0xabc","token_id":6,"price":"50"}`, http.StatusCreated},
		{http.MethodPatch, "/v1/market/listings/0xabc/6", "seller_1", `{"new_price":"40"}`, http.StatusOK},
		{http.MethodPost, "/v1/market/listings/0xabc/6/purchase", "buyer_1", `{"attached_amount":"40"}`, http.StatusOK},
	}
	for _, step := range steps {
		rr := doJSON(server, step.method, step.target, step.user, []byte(step.body))
		if rr.Code != step.want {
			t.Fatalf("%s %s: expected %d, got %d body=%s", step.method, step.target, step.want, rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(server, http.MethodGet, "/v1/market/events", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 events, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp markethttp.ListEventsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode events response: %v", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("expected 3 recorded events, got %d", len(resp.Items))
	}
	if resp.Items[0].EventType != "market.listing.purchased" {
		t.Fatalf("expected newest event market.listing.purchased, got %q", resp.Items[0].EventType)
	}
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer()
	rr := doJSON(server, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 healthz, got %d body=%s", rr.Code, rr.Body.String())
	}
}
