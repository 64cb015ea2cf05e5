package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khoa21023/salebot-telegram/services/api/internal/clock"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

var testStart = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

const testTTL = 180 * time.Second

type fixture struct {
	store      *rowstore.Memory
	clock      *clock.Manual
	registry   *OrderRegistry
	ledger     *StockLedger
	catalog    *Catalog
	audit      *AuditLog
	holds      *HoldService
	expiry     *ExpiryScheduler
	settlement *SettlementCoordinator
	reconciler *Reconciler
	buyers     *recordingNotifier
	operators  *recordingNotifier
}

// newFixture wires the engine over an in-memory store seeded with one
// product ("p1", price 20000) carrying units available credentials.
func newFixture(t *testing.T, units int) *fixture {
	t.Helper()

	f := &fixture{
		store:     rowstore.NewMemory(),
		clock:     clock.NewManual(testStart),
		buyers:    &recordingNotifier{},
		operators: &recordingNotifier{},
	}
	ctx := context.Background()
	require.NoError(t, f.store.AppendRows(ctx, rowstore.TableProducts, []rowstore.Fields{
		{colID: "p1", colName: "Netflix", colPrice: "20.000đ"},
	}))
	seedStock(t, f.store, "p1", units)

	f.registry = NewOrderRegistry(f.clock, f.clock)
	f.ledger = NewStockLedger(f.store, NewGate())
	f.catalog = NewCatalog(f.store)
	f.audit = NewAuditLog(f.store)
	f.holds = NewHoldService(f.catalog, f.ledger, f.registry, WithHoldTTL(testTTL))
	f.expiry = NewExpiryScheduler(f.registry, f.ledger, f.buyers)
	f.settlement = NewSettlementCoordinator(f.registry, f.ledger, f.audit, f.clock,
		WithNotifiers(f.buyers, f.operators),
		WithLowStockThreshold(-1),
	)
	f.reconciler = NewReconciler(f.registry, f.ledger, WithReconcilerOperators(f.operators))
	return f
}

func seedStock(t *testing.T, store rowstore.Store, productID string, units int) {
	t.Helper()
	if units == 0 {
		return
	}
	records := make([]rowstore.Fields, 0, units)
	for i := 0; i < units; i++ {
		records = append(records, rowstore.Fields{
			colProductID:  productID,
			colCredential: fmt.Sprintf("%s-user%d | pass%d", productID, i, i),
			colStatus:     string(domain.ItemStatusAvailable),
			colHolder:     "",
		})
	}
	require.NoError(t, store.AppendRows(context.Background(), rowstore.TableStock, records))
}

func (f *fixture) reserve(t *testing.T, buyerID string, quantity int) domain.Reservation {
	t.Helper()
	res, err := f.holds.CreateHold(context.Background(), CreateHoldInput{
		ProductID: "p1",
		Quantity:  quantity,
		Buyer:     domain.Buyer{ID: buyerID, Name: buyerID},
	})
	require.NoError(t, err)
	return res
}

// statusCounts tallies stock rows by status; held rows are also counted per
// holder.
func (f *fixture) statusCounts(t *testing.T) (map[domain.ItemStatus]int, map[string]int) {
	t.Helper()
	rows, err := f.store.ListRows(context.Background(), rowstore.TableStock, nil)
	require.NoError(t, err)
	byStatus := make(map[domain.ItemStatus]int)
	byHolder := make(map[string]int)
	for _, row := range rows {
		byStatus[domain.ItemStatus(row.Get(colStatus))]++
		if row.Get(colHolder) != "" {
			byHolder[row.Get(colHolder)]++
		}
	}
	return byStatus, byHolder
}

func (f *fixture) history(t *testing.T) []rowstore.Row {
	t.Helper()
	rows, err := f.store.ListRows(context.Background(), rowstore.TableHistory, nil)
	require.NoError(t, err)
	return rows
}

func paid(reference string, amount int64) domain.PaymentEvent {
	return domain.PaymentEvent{
		Reference:  reference,
		AmountPaid: decimalInt(amount),
		Status:     domain.PaymentPaid,
	}
}

type notice struct {
	To      string
	Message string
}

type recordingNotifier struct {
	mu       sync.Mutex
	notices  []notice
	failWith error
}

func (r *recordingNotifier) NotifyBuyer(_ context.Context, buyerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.notices = append(r.notices, notice{To: buyerID, Message: message})
	return nil
}

func (r *recordingNotifier) NotifyOperators(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.notices = append(r.notices, notice{Message: message})
	return nil
}

func (r *recordingNotifier) sent() []notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notice(nil), r.notices...)
}

func decimalInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
