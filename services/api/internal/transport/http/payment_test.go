package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/payment"
)

type fakePayments struct {
	result app.SettlementResult
	err    error
	got    []domain.PaymentEvent
}

func (f *fakePayments) HandlePayment(_ context.Context, ev domain.PaymentEvent) (app.SettlementResult, error) {
	f.got = append(f.got, ev)
	return f.result, f.err
}

func signedBody(t *testing.T, v *payment.Verifier, reference, amount, status string) string {
	t.Helper()
	c := payment.Callback{Reference: reference, Amount: amount, Status: status}
	body, err := json.Marshal(map[string]any{
		"reference": reference,
		"amount":    json.Number(amount),
		"status":    status,
		"signature": v.Sign(c),
	})
	require.NoError(t, err)
	return string(body)
}

func TestHandlePaymentWebhook(t *testing.T) {
	t.Parallel()
	verifier := payment.NewVerifier("key")

	t.Run("settles a signed callback", func(t *testing.T) {
		svc := &fakePayments{result: app.SettlementResult{Outcome: app.OutcomeSettled, OrderID: "ORD-1"}}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment",
			strings.NewReader(signedBody(t, verifier, "r1", "40000", "PAID")))
		rec := httptest.NewRecorder()

		HandlePaymentWebhook(verifier, svc, zerolog.Nop()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"outcome":"settled","order_id":"ORD-1"}`, rec.Body.String())
		require.Len(t, svc.got, 1)
		assert.Equal(t, "r1", svc.got[0].Reference)
		assert.Equal(t, "40000", svc.got[0].AmountPaid.String())
	})

	t.Run("acknowledges settlement failures", func(t *testing.T) {
		svc := &fakePayments{
			result: app.SettlementResult{Outcome: app.OutcomeStale},
			err:    domain.ErrStaleReservation,
		}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment",
			strings.NewReader(signedBody(t, verifier, "gone", "1", "PAID")))
		rec := httptest.NewRecorder()

		HandlePaymentWebhook(verifier, svc, zerolog.Nop()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"outcome":"stale"`)
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		svc := &fakePayments{}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment",
			strings.NewReader(`{"reference":"r1","amount":40000,"status":"PAID","signature":"00"}`))
		rec := httptest.NewRecorder()

		HandlePaymentWebhook(verifier, svc, zerolog.Nop()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.got)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		svc := &fakePayments{err: errors.New("unused")}
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(`{"amount":"x"`))
		rec := httptest.NewRecorder()

		HandlePaymentWebhook(verifier, svc, zerolog.Nop()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("amount may be sent as a string", func(t *testing.T) {
		svc := &fakePayments{result: app.SettlementResult{Outcome: app.OutcomeSettled}}
		c := payment.Callback{Reference: "r2", Amount: "20000", Status: "PAID"}
		body := `{"reference":"r2","amount":"20000","status":"PAID","signature":"` + verifier.Sign(c) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
		rec := httptest.NewRecorder()

		HandlePaymentWebhook(verifier, svc, zerolog.Nop()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, svc.got, 1)
	})
}
