package http

import (
	"context"
	"net/http"

	"github.com/khoa21023/salebot-telegram/services/api/internal/app"
)

// StockLister is the minimal interface needed to list products with stock.
type StockLister interface {
	ListStock(ctx context.Context) ([]app.ProductStock, error)
}

// HandleListProducts returns an HTTP handler for GET /products.
func HandleListProducts(svc StockLister) http.HandlerFunc {
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

type productResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
}

func newProductResponse(s app.ProductStock) productResponse {
	return productResponse{
		ID:        s.Product.ID,
		Name:      s.Product.Name,
		Price:     s.Product.UnitPrice.String(),
		Available: s.Available,
	}
}
