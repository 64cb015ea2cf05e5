package adminclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendsAdminToken(t *testing.T) {
	t.Parallel()

	var gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Admin-Token")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"scanned":5,"repaired":2,"failed":1,"stalled":["r7"]}`))
	}))
	t.Cleanup(srv.Close)

	got, err := New(srv.URL+"/", "secret").Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "/admin/sweep", gotPath)
	assert.Equal(t, 5, got.Scanned)
	assert.Equal(t, 2, got.Repaired)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, []string{"r7"}, got.Stalled)
}

func TestClient_Settle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/reservations/r 1/settle", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"reservation has no accepted payment","code":"not_stalled"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, "secret").Settle(context.Background(), "r 1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "not_stalled", apiErr.Code)
}

func TestClient_Stock(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Netflix","price":"20000","available":3}]`))
	}))
	t.Cleanup(srv.Close)

	products, err := New(srv.URL, "secret").Stock(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Netflix", products[0].Name)
	assert.True(t, decimal.NewFromInt(20000).Equal(products[0].Price))
	assert.Equal(t, 3, products[0].Available)
}

func TestClient_Restock(t *testing.T) {
	t.Parallel()

	var body struct {
		Credentials []string `json:"credentials"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/products/p1/stock", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"added":1,"duplicates":1,"invalid":0}`))
	}))
	t.Cleanup(srv.Close)

	res, err := New(srv.URL, "secret").Restock(context.Background(), "p1", []string{"a|1", "b|2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a|1", "b|2"}, body.Credentials)
	assert.Equal(t, RestockResult{Added: 1, Duplicates: 1}, res)
}

func TestClient_Orders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "buyer 42", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"order_id":"ORD-1","buyer_id":"42","credential":"u | p","sold_at":"2025-01-01T12:00:00Z"}]`))
	}))
	t.Cleanup(srv.Close)

	lines, err := New(srv.URL, "secret").Orders(context.Background(), "buyer 42")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "ORD-1", lines[0].OrderID)
	assert.Equal(t, 2025, lines[0].SoldAt.Year())
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid admin token","code":"unauthorized"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, "wrong").AddProduct(context.Background(), "p1", "Netflix", decimal.NewFromInt(1))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)
	assert.Contains(t, err.Error(), "invalid admin token")
}
