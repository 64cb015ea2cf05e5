package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

// HoldCreator is the minimal interface needed to reserve stock.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Reservation, error)
}

// HoldCanceller is the minimal interface needed to cancel a reservation.
type HoldCanceller interface {
	CancelHold(ctx context.Context, reservationID, buyerID string) (domain.Reservation, error)
}

// HandleCreateReservation returns an HTTP handler for POST /reservations.
func HandleCreateReservation(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createReservationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductID == "" || req.BuyerID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "product_id and buyer_id are required")
			return
		}

		res, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Buyer:     domain.Buyer{ID: req.BuyerID, Name: req.BuyerName},
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newReservationResponse(res))
	}
}

// HandleCancelReservation returns an HTTP handler for
// POST /reservations/{id}/cancel.
func HandleCancelReservation(svc HoldCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := parseCancelPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req cancelReservationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.BuyerID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "buyer_id is required")
			return
		}

		res, err := svc.CancelHold(r.Context(), id, req.BuyerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

func parseCancelPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "reservations" || parts[2] != "cancel" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createReservationRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	BuyerID   string `json:"buyer_id"`
	BuyerName string `json:"buyer_name"`
}

type cancelReservationRequest struct {
	BuyerID string `json:"buyer_id"`
}

type reservationResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Total       string    `json:"total"`
	State       string    `json:"state"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:          res.ID,
		ProductID:   res.ProductID,
		ProductName: res.ProductName,
		Quantity:    res.Quantity,
		Total:       res.Total().String(),
		State:       string(res.State),
		ExpiresAt:   res.ExpiresAt,
	}
}
