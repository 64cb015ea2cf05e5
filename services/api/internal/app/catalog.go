package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

// Products table columns.
const (
	colID    = "id"
	colName  = "name"
	colPrice = "price"
)

// Catalog reads products. Products are maintained outside the engine.
type Catalog struct {
	store  rowstore.Store
	logger zerolog.Logger
}

type CatalogOption func(*Catalog)

func WithCatalogLogger(logger zerolog.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

func NewCatalog(store rowstore.Store, opts ...CatalogOption) *Catalog {
	c := &Catalog{store: store, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProducts returns the products that can be sold. Rows with an
// unreadable price are skipped and logged.
func (c *Catalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := c.store.ListRows(ctx, rowstore.TableProducts, nil)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		if row.Get(colID) == "" {
			continue
		}
		p, err := productFromRow(row)
		if err != nil {
			c.logger.Warn().Err(err).Str("product_id", row.Get(colID)).Msg("skipping product")
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if id == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}
	rows, err := c.store.ListRows(ctx, rowstore.TableProducts, rowstore.Match{colID: id})
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	if len(rows) == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return productFromRow(rows[0])
}

// AddProduct appends a product row. Ids are unique per catalog and prices
// are positive whole currency units.
func (c *Catalog) AddProduct(ctx context.Context, p domain.Product) error {
	if p.ID == "" || p.Name == "" || !p.UnitPrice.IsPositive() || !p.UnitPrice.Equal(p.UnitPrice.Truncate(0)) {
		return domain.ErrInvalidProduct
	}
	if _, err := c.GetProduct(ctx, p.ID); err == nil || errors.Is(err, domain.ErrInvalidPrice) {
		return domain.ErrProductExists
	} else if !errors.Is(err, domain.ErrProductNotFound) {
		return err
	}
	err := c.store.AppendRows(ctx, rowstore.TableProducts, []rowstore.Fields{{
		colID:    p.ID,
		colName:  p.Name,
		colPrice: p.UnitPrice.StringFixed(0),
	}})
	if err != nil {
		return fmt.Errorf("add product: %w", err)
	}
	return nil
}

func productFromRow(row rowstore.Row) (domain.Product, error) {
	price, err := parsePrice(row.Get(colPrice))
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", row.Get(colID), err)
	}
	return domain.Product{
		ID:        row.Get(colID),
		Name:      row.Get(colName),
		UnitPrice: price,
	}, nil
}

var (
	currencyMarks = strings.NewReplacer("₫", "", "đ", "", "Đ", "", "VND", "", "vnd", "", " ", "", "\u00a0", "")
	// Whole amounts, optionally grouped by thousands: "20000", "20.000", "1,500,000".
	pricePattern = regexp.MustCompile(`^(\d+|\d{1,3}([.,]\d{3})+)$`)
)

// parsePrice reads a sheet-formatted whole price such as "20.000đ" or
// "15,000 VND". Anything else, including decimals like "12.5", is rejected
// rather than guessed.
func parsePrice(raw string) (decimal.Decimal, error) {
	s := currencyMarks.Replace(strings.TrimSpace(raw))
	if !pricePattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidPrice, raw)
	}
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidPrice, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q is not positive", domain.ErrInvalidPrice, raw)
	}
	return d, nil
}
