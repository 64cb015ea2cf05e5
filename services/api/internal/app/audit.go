package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

// History table columns.
const (
	colDate          = "date"
	colBuyerID       = "buyer_id"
	colBuyerName     = "buyer_name"
	colProductName   = "product_name"
	colReservationID = "reservation_id"
	colOrderID       = "order_id"
)

// AuditLog is the append-only sales history. Only settlement writes to it.
type AuditLog struct {
	store rowstore.Store
}

func NewAuditLog(store rowstore.Store) *AuditLog {
	return &AuditLog{store: store}
}

func (a *AuditLog) record(ctx context.Context, records []domain.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]rowstore.Fields, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowstore.Fields{
			colDate:          rec.Timestamp.UTC().Format(time.RFC3339),
			colBuyerID:       rec.BuyerID,
			colBuyerName:     rec.BuyerName,
			colProductID:     rec.ProductID,
			colProductName:   rec.ProductName,
			colCredential:    rec.Credential,
			colReservationID: rec.ReservationID,
			colOrderID:       rec.OrderID,
		})
	}
	if err := a.store.AppendRows(ctx, rowstore.TableHistory, rows); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Find returns history rows whose order id or buyer id equals query.
func (a *AuditLog) Find(ctx context.Context, query string) ([]domain.AuditRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidID
	}
	rows, err := a.store.ListRows(ctx, rowstore.TableHistory, nil)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	var out []domain.AuditRecord
	for _, row := range rows {
		if row.Get(colOrderID) != query && row.Get(colBuyerID) != query {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, row.Get(colDate))
		out = append(out, domain.AuditRecord{
			Timestamp:     ts,
			BuyerID:       row.Get(colBuyerID),
			BuyerName:     row.Get(colBuyerName),
			ProductID:     row.Get(colProductID),
			ProductName:   row.Get(colProductName),
			Credential:    row.Get(colCredential),
			ReservationID: row.Get(colReservationID),
			OrderID:       row.Get(colOrderID),
		})
	}
	return out, nil
}
