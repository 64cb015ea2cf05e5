package app

import (
	"context"
	"strings"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	AddProduct(ctx context.Context, p domain.Product) error
}

type StockKeeper interface {
	AvailableCounts(ctx context.Context) (map[string]int, error)
	Restock(ctx context.Context, productID string, lines []string) (RestockResult, error)
}

type OrderFinder interface {
	Find(ctx context.Context, query string) ([]domain.AuditRecord, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type Settler interface {
	Retry(ctx context.Context, reservationID string) (SettlementResult, error)
}

// AdminService backs the operator surface and the public product listing.
type AdminService struct {
	catalog ProductLister
	stock   StockKeeper
	orders  OrderFinder
	sweeper Sweeper
	settler Settler
}

func NewAdminService(catalog ProductLister, stock StockKeeper, orders OrderFinder, sweeper Sweeper, settler Settler) *AdminService {
	return &AdminService{
		catalog: catalog,
		stock:   stock,
		orders:  orders,
		sweeper: sweeper,
		settler: settler,
	}
}

type ProductStock struct {
	Product   domain.Product
	Available int
}

// ListStock returns every product with its available count. Products with
// no stock rows are listed with zero.
func (s *AdminService) ListStock(ctx context.Context) ([]ProductStock, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.stock.AvailableCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProductStock, 0, len(products))
	for _, p := range products {
		out = append(out, ProductStock{Product: p, Available: counts[p.ID]})
	}
	return out, nil
}

func (s *AdminService) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if err := s.catalog.AddProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return s.catalog.GetProduct(ctx, p.ID)
}

type RestockInput struct {
	ProductID   string
	Credentials []string
}

func (s *AdminService) Restock(ctx context.Context, in RestockInput) (RestockResult, error) {
	if in.ProductID == "" {
		return RestockResult{}, domain.ErrInvalidID
	}
	lines := make([]string, 0, len(in.Credentials))
	for _, c := range in.Credentials {
		// A single entry may carry a pasted block of lines.
		for _, line := range strings.Split(c, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	if len(lines) == 0 {
		return RestockResult{}, domain.ErrNoCredentials
	}
	if _, err := s.catalog.GetProduct(ctx, in.ProductID); err != nil {
		return RestockResult{}, err
	}
	return s.stock.Restock(ctx, in.ProductID, lines)
}

func (s *AdminService) FindOrders(ctx context.Context, query string) ([]domain.AuditRecord, error) {
	return s.orders.Find(ctx, query)
}

func (s *AdminService) Sweep(ctx context.Context) (SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}

// RetrySettlement finishes a sale that stalled after its payment was
// accepted. Sweep reports which reservations need it.
func (s *AdminService) RetrySettlement(ctx context.Context, reservationID string) (SettlementResult, error) {
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return SettlementResult{}, domain.ErrInvalidID
	}
	return s.settler.Retry(ctx, reservationID)
}
