package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	marketerrors "bazaar/contexts/trading/listing-engine/domain/errors"
	markethttp "bazaar/contexts/trading/listing-engine/transport/http"
)

func writeMarketError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, markethttp.ErrorResponse{Code: code, Message: message})
}

func writeMarketDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketerrors.ErrNotListed):
		writeMarketError(w, http.StatusNotFound, "not_listed", err.Error())
	case errors.Is(err, marketerrors.ErrAlreadyListed):
		writeMarketError(w, http.StatusConflict, "already_listed", err.Error())
	case errors.Is(err, marketerrors.ErrNotOwner):
		writeMarketError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, marketerrors.ErrInvalidCollection):
		writeMarketError(w, http.StatusBadRequest, "invalid_collection", err.Error())
	case errors.Is(err, marketerrors.ErrInvalidPrice):
		writeMarketError(w, http.StatusBadRequest, "invalid_price", err.Error())
	case errors.Is(err, marketerrors.ErrIncorrectPayment):
		writeMarketError(w, http.StatusBadRequest, "incorrect_payment", err.Error())
	case errors.Is(err, marketerrors.ErrInvalidRequest):
		writeMarketError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, marketerrors.ErrNotApproved):
		writeMarketError(w, http.StatusFailedDependency, "not_approved", err.Error())
	case errors.Is(err, marketerrors.ErrSettlementTransferFailed):
		writeMarketError(w, http.StatusFailedDependency, "settlement_failed", err.Error())
	default:
		writeMarketError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireMarketUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeMarketError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func marketListingKey(w http.ResponseWriter, r *http.Request) (string, uint64, bool) {
	collection := r.PathValue("collection")
	tokenID, err := strconv.ParseUint(r.PathValue("token_id"), 10, 64)
	if err != nil {
		writeMarketError(w, http.StatusBadRequest, "invalid_token_id", "token_id must be an unsigned integer")
		return "", 0, false
	}
	return collection, tokenID, true
}
