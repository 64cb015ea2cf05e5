package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/payment"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidProduct       = "invalid_product"
	codeProductNotFound      = "product_not_found"
	codeProductExists        = "product_already_exists"
	codeInsufficientStock    = "insufficient_stock"
	codeStockWriteFailed     = "stock_write_failed"
	codeReservationNotFound  = "reservation_not_found"
	codeReservationResolved  = "reservation_resolved"
	codeNotStalled           = "not_stalled"
	codeProductUnavailable   = "product_unavailable"
	codeNotReservationOwner  = "not_reservation_owner"
	codeNoCredentials        = "no_credentials"
	codeInvalidSignature     = "invalid_signature"
	codeMalformedCallback    = "malformed_callback"
	codeUnauthorized         = "unauthorized"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps service errors to responses. Unknown errors are
// reported as internal without leaking their text.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, codeInvalidProduct, err.Error())
	case errors.Is(err, domain.ErrNoCredentials):
		writeError(w, http.StatusBadRequest, codeNoCredentials, err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrProductExists):
		writeError(w, http.StatusConflict, codeProductExists, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrReservationResolved):
		writeError(w, http.StatusConflict, codeReservationResolved, err.Error())
	case errors.Is(err, domain.ErrNotStalled):
		writeError(w, http.StatusConflict, codeNotStalled, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusConflict, codeProductUnavailable, "product is not for sale right now")
	case errors.Is(err, domain.ErrNotReservationOwner):
		writeError(w, http.StatusForbidden, codeNotReservationOwner, err.Error())
	case errors.Is(err, domain.ErrPartialWrite):
		writeError(w, http.StatusServiceUnavailable, codeStockWriteFailed, "stock update failed, try again")
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, http.StatusUnauthorized, codeInvalidSignature, err.Error())
	case errors.Is(err, payment.ErrMalformed):
		writeError(w, http.StatusBadRequest, codeMalformedCallback, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
