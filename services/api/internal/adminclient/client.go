// Package adminclient talks to the operator endpoints of a running API.
package adminclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	transporthttp "github.com/khoa21023/salebot-telegram/services/api/internal/transport/http"
)

const (
	defaultTimeout   = 30 * time.Second
	adminTokenHeader = "X-Admin-Token"
)

// Client is a thin resty wrapper around /admin.
type Client struct {
	http *resty.Client
}

func New(baseURL, adminToken string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeader(adminTokenHeader, adminToken).
			SetHeader("Content-Type", "application/json"),
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return fmt.Sprintf("api returned %d: %s (%s)", e.Status, e.Message, e.Code)
}

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
}

type RestockResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type OrderLine struct {
	OrderID       string    `json:"order_id"`
	ReservationID string    `json:"reservation_id"`
	BuyerID       string    `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Credential    string    `json:"credential"`
	SoldAt        time.Time `json:"sold_at"`
}

// Sweep triggers a reconciliation pass on the server.
func (c *Client) Sweep(ctx context.Context) (transporthttp.SweepResponse, error) {
	var out transporthttp.SweepResponse
	err := c.do(ctx, resty.MethodPost, "/admin/sweep", nil, &out)
	return out, err
}

// Settle retries a sale that stalled after its payment was accepted.
func (c *Client) Settle(ctx context.Context, reservationID string) (transporthttp.SettleResponse, error) {
	var out transporthttp.SettleResponse
	path := "/admin/reservations/" + url.PathEscape(reservationID) + "/settle"
	err := c.do(ctx, resty.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) Stock(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.do(ctx, resty.MethodGet, "/admin/stock", nil, &out)
	return out, err
}

func (c *Client) AddProduct(ctx context.Context, id, name string, price decimal.Decimal) (Product, error) {
	var out Product
	body := map[string]any{"id": id, "name": name, "price": price}
	err := c.do(ctx, resty.MethodPost, "/admin/products", body, &out)
	return out, err
}

// Restock uploads "user|password" lines for a product.
func (c *Client) Restock(ctx context.Context, productID string, credentials []string) (RestockResult, error) {
	var out RestockResult
	path := "/admin/products/" + url.PathEscape(productID) + "/stock"
	err := c.do(ctx, resty.MethodPost, path, map[string]any{"credentials": credentials}, &out)
	return out, err
}

// Orders looks up sold lines by order id or buyer id.
func (c *Client) Orders(ctx context.Context, query string) ([]OrderLine, error) {
	var out []OrderLine
	err := c.do(ctx, resty.MethodGet, "/admin/orders?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}
