package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	listingengine "bazaar/contexts/trading/listing-engine"
	markethttp "bazaar/contexts/trading/listing-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "bazaar/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	market listingengine.Module
	stream *EventStream
}

func New(
	market listingengine.Module,
	stream *EventStream,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		market: market,
		stream: stream,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/market/listings", s.handleCreateListing)
	s.mux.HandleFunc("GET /v1/market/listings", s.handleListListings)
	s.mux.HandleFunc("GET /v1/market/listings/{collection}/{token_id}", s.handleGetListing)
	s.mux.HandleFunc("PATCH /v1/market/listings/{collection}/{token_id}", s.handleUpdateListing)
	s.mux.HandleFunc("DELETE /v1/market/listings/{collection}/{token_id}", s.handleCancelListing)
	s.mux.HandleFunc("POST /v1/market/listings/{collection}/{token_id}/purchase", s.handlePurchaseListing)

	s.mux.HandleFunc("GET /v1/market/events", s.handleListEvents)
	if s.stream != nil {
		s.mux.HandleFunc("GET /v1/market/events/stream", s.stream.Handle)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireMarketUser(w, r)
	if !ok {
		return
	}

	var req markethttp.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.CreateListingHandler(r.Context(), caller, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	collection, tokenID, ok := marketListingKey(w, r)
	if !ok {
		return
	}

	resp, err := s.market.Handler.GetListingHandler(r.Context(), collection, tokenID)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeMarketError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.market.Handler.ListListingsHandler(
		r.Context(),
		query.Get("collection"),
		query.Get("seller"),
		query.Get("cursor"),
		limit,
	)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireMarketUser(w, r)
	if !ok {
		return
	}
	collection, tokenID, ok := marketListingKey(w, r)
	if !ok {
		return
	}

	var req markethttp.UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.UpdateListingHandler(r.Context(), caller, collection, tokenID, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireMarketUser(w, r)
	if !ok {
		return
	}
	collection, tokenID, ok := marketListingKey(w, r)
	if !ok {
		return
	}

	resp, err := s.market.Handler.CancelListingHandler(r.Context(), caller, collection, tokenID)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePurchaseListing(w http.ResponseWriter, r *http.Request) {
	buyer, ok := requireMarketUser(w, r)
	if !ok {
		return
	}
	collection, tokenID, ok := marketListingKey(w, r)
	if !ok {
		return
	}

	var req markethttp.PurchaseListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.market.Handler.PurchaseListingHandler(r.Context(), buyer, collection, tokenID, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeMarketError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.market.Handler.ListEventsHandler(r.Context(), limit)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
