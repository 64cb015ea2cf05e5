package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

// AdminStockService is the minimal interface needed for admin stock endpoints.
type AdminStockService interface {
	ListStock(ctx context.Context) ([]app.ProductStock, error)
	AddProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	Restock(ctx context.Context, in app.RestockInput) (app.RestockResult, error)
}

// AdminOrderService is the minimal interface needed for order lookups.
type AdminOrderService interface {
	FindOrders(ctx context.Context, query string) ([]domain.AuditRecord, error)
}

// AdminSweepService is the minimal interface needed to trigger a sweep.
type AdminSweepService interface {
	Sweep(ctx context.Context) (app.SweepResult, error)
}

// AdminSettleService is the minimal interface needed to retry a stalled sale.
type AdminSettleService interface {
	RetrySettlement(ctx context.Context, reservationID string) (app.SettlementResult, error)
}

// HandleAdminStock returns an HTTP handler for GET /admin/stock.
func HandleAdminStock(svc AdminStockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		stock, err := svc.ListStock(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]productResponse, 0, len(stock))
		for _, s := range stock {
			resp = append(resp, newProductResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleAdminProducts returns an HTTP handler for POST /admin/products.
func HandleAdminProducts(svc AdminStockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		var req createProductRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ID == "" || req.Name == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "id and name are required")
			return
		}

		product, err := svc.AddProduct(r.Context(), domain.Product{
			ID:        req.ID,
			Name:      req.Name,
			UnitPrice: req.Price,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newProductResponse(app.ProductStock{Product: product}))
	}
}

// HandleAdminRestock returns an HTTP handler for
// POST /admin/products/{id}/stock.
func HandleAdminRestock(svc AdminStockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		productID, ok := parseRestockPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		var req restockRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Restock(r.Context(), app.RestockInput{
			ProductID:   productID,
			Credentials: req.Credentials,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, restockResponse{
			Added:      res.Added,
			Duplicates: res.Duplicates,
			Invalid:    res.Invalid,
		})
	}
}

// HandleAdminOrders returns an HTTP handler for GET /admin/orders?q=.
func HandleAdminOrders(svc AdminOrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "q is required")
			return
		}
		records, err := svc.FindOrders(r.Context(), query)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]orderLineResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, orderLineResponse{
				OrderID:       rec.OrderID,
				ReservationID: rec.ReservationID,
				BuyerID:       rec.BuyerID,
				BuyerName:     rec.BuyerName,
				ProductID:     rec.ProductID,
				ProductName:   rec.ProductName,
				Credential:    rec.Credential,
				SoldAt:        rec.Timestamp,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleAdminSweep returns an HTTP handler for POST /admin/sweep.
func HandleAdminSweep(svc AdminSweepService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		res, err := svc.Sweep(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		stalled := res.Stalled
		if stalled == nil {
			stalled = []string{}
		}
		writeJSON(w, http.StatusOK, SweepResponse{
			Scanned:  res.Scanned,
			Repaired: res.Repaired,
			Failed:   res.Failed,
			Stalled:  stalled,
		})
	}
}

// HandleAdminSettle returns an HTTP handler for
// POST /admin/reservations/{id}/settle.
func HandleAdminSettle(svc AdminSettleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		reservationID, ok := parseSettlePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		res, err := svc.RetrySettlement(r.Context(), reservationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SettleResponse{
			ReservationID: res.ReservationID,
			OrderID:       res.OrderID,
			Outcome:       string(res.Outcome),
			Items:         len(res.Items),
		})
	}
}

func parseSettlePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "reservations" || parts[3] != "settle" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func parseRestockPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "products" || parts[3] != "stock" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type createProductRequest struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type restockRequest struct {
	Credentials []string `json:"credentials"`
}

type restockResponse struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type orderLineResponse struct {
	OrderID       string    `json:"order_id"`
	ReservationID string    `json:"reservation_id"`
	BuyerID       string    `json:"buyer_id"`
	BuyerName     string    `json:"buyer_name"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	Credential    string    `json:"credential"`
	SoldAt        time.Time `json:"sold_at"`
}

// SweepResponse is the body of POST /admin/sweep. It is exported for the
// admin client.
type SweepResponse struct {
	Scanned  int      `json:"scanned"`
	Repaired int      `json:"repaired"`
	Failed   int      `json:"failed"`
	Stalled  []string `json:"stalled"`
}

// SettleResponse is the body of POST /admin/reservations/{id}/settle.
type SettleResponse struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Outcome       string `json:"outcome"`
	Items         int    `json:"items"`
}
