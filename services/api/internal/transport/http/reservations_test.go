package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

type fakeHolds struct {
	createErr error
	cancelErr error
	gotCreate app.CreateHoldInput
	gotCancel [2]string
}

func (f *fakeHolds) CreateHold(_ context.Context, in app.CreateHoldInput) (domain.Reservation, error) {
	f.gotCreate = in
	if f.createErr != nil {
		return domain.Reservation{}, f.createErr
	}
	return domain.Reservation{
		ID:          "res-123",
		ProductID:   in.ProductID,
		ProductName: "Netflix",
		Quantity:    in.Quantity,
		UnitPrice:   decimal.NewFromInt(20000),
		Buyer:       in.Buyer,
		State:       domain.ReservationPending,
		ExpiresAt:   time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC),
	}, nil
}

func (f *fakeHolds) CancelHold(_ context.Context, id, buyerID string) (domain.Reservation, error) {
	f.gotCancel = [2]string{id, buyerID}
	if f.cancelErr != nil {
		return domain.Reservation{}, f.cancelErr
	}
	return domain.Reservation{ID: id, State: domain.ReservationReleased}, nil
}

func TestHandleCreateReservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		method         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"product_id":"p1","quantity":2,"buyer_id":"42","buyer_name":"alice"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"total":"40000"`,
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "invalid json",
			body:           `{"product_id":`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "unknown field",
			body:           `{"product_id":"p1","quantity":1,"buyer_id":"42","coupon":"x"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing buyer",
			body:           `{"product_id":"p1","quantity":1}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeMissingRequiredField,
		},
		{
			name:           "invalid quantity",
			body:           `{"product_id":"p1","quantity":0,"buyer_id":"42"}`,
			serviceErr:     domain.ErrInvalidQuantity,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidQuantity,
		},
		{
			name:           "product not found",
			body:           `{"product_id":"p9","quantity":1,"buyer_id":"42"}`,
			serviceErr:     domain.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "insufficient stock",
			body:           `{"product_id":"p1","quantity":5,"buyer_id":"42"}`,
			serviceErr:     &domain.InsufficientStockError{ProductID: "p1", Requested: 5, Available: 1},
			expectedStatus: http.StatusConflict,
			expectedSubstr: "available 1",
		},
		{
			name:           "unreadable price",
			body:           `{"product_id":"p2","quantity":1,"buyer_id":"42"}`,
			serviceErr:     fmt.Errorf("product p2: %w", domain.ErrInvalidPrice),
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeProductUnavailable,
		},
		{
			name:           "partial write",
			body:           `{"product_id":"p1","quantity":2,"buyer_id":"42"}`,
			serviceErr:     &domain.PartialWriteError{Written: 1, Err: errors.New("quota")},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "internal error",
			body:           `{"product_id":"p1","quantity":1,"buyer_id":"42"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			svc := &fakeHolds{createErr: tt.serviceErr}
			req := httptest.NewRequest(method, "/reservations", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			HandleCreateReservation(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedSubstr != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedSubstr)
			}
		})
	}
}

func TestHandleCreateReservation_PassesBuyer(t *testing.T) {
	t.Parallel()

	svc := &fakeHolds{}
	req := httptest.NewRequest(http.MethodPost, "/reservations",
		strings.NewReader(`{"product_id":"p1","quantity":1,"buyer_id":"42","buyer_name":"alice"}`))
	HandleCreateReservation(svc).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, app.CreateHoldInput{
		ProductID: "p1",
		Quantity:  1,
		Buyer:     domain.Buyer{ID: "42", Name: "alice"},
	}, svc.gotCreate)
}

func TestHandleCancelReservation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{"success", "/reservations/r1/cancel", `{"buyer_id":"42"}`, nil, http.StatusOK},
		{"bad path", "/reservations/r1", `{"buyer_id":"42"}`, nil, http.StatusNotFound},
		{"missing buyer", "/reservations/r1/cancel", `{}`, nil, http.StatusBadRequest},
		{"not owner", "/reservations/r1/cancel", `{"buyer_id":"7"}`, domain.ErrNotReservationOwner, http.StatusForbidden},
		{"unknown", "/reservations/r1/cancel", `{"buyer_id":"42"}`, domain.ErrReservationNotFound, http.StatusNotFound},
		{"already resolved", "/reservations/r1/cancel", `{"buyer_id":"42"}`, domain.ErrReservationResolved, http.StatusConflict},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeHolds{cancelErr: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			HandleCancelReservation(svc).ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, [2]string{"r1", "42"}, svc.gotCancel)
				assert.Contains(t, rec.Body.String(), `"state":"released"`)
			}
		})
	}
}
