package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/payment"
)

// PaymentHandler is the minimal interface needed to settle payments.
type PaymentHandler interface {
	HandlePayment(ctx context.Context, ev domain.PaymentEvent) (app.SettlementResult, error)
}

// CallbackVerifier authenticates gateway callbacks.
type CallbackVerifier interface {
	Verify(c payment.Callback) (domain.PaymentEvent, error)
}

// HandlePaymentWebhook returns the gateway callback handler. Once a callback
// is authenticated it is always acknowledged with 200, whatever the
// settlement outcome, so the gateway stops redelivering.
func HandlePaymentWebhook(verifier CallbackVerifier, svc PaymentHandler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req paymentCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		ev, err := verifier.Verify(payment.Callback{
			Reference: req.Reference,
			Amount:    req.Amount.String(),
			Status:    req.Status,
			Signature: req.Signature,
		})
		if err != nil {
			logger.Warn().Err(err).Str("reference", req.Reference).Msg("rejected payment callback")
			writeDomainError(w, err)
			return
		}

		result, err := svc.HandlePayment(r.Context(), ev)
		if err != nil {
			logger.Warn().Err(err).
				Str("reservation_id", ev.Reference).
				Str("outcome", string(result.Outcome)).
				Msg("payment not settled")
		}
		writeJSON(w, http.StatusOK, paymentCallbackResponse{
			Outcome: string(result.Outcome),
			OrderID: result.OrderID,
		})
	}
}

type paymentCallbackRequest struct {
	Reference string      `json:"reference"`
	Amount    json.Number `json:"amount"`
	Status    string      `json:"status"`
	Signature string      `json:"signature"`
}

type paymentCallbackResponse struct {
	Outcome string `json:"outcome"`
	OrderID string `json:"order_id,omitempty"`
}
