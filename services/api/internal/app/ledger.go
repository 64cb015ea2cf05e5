package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

// Stock table columns.
const (
	colProductID  = "product_id"
	colCredential = "credential"
	colStatus     = "status"
	colHolder     = "holder_id"
)

// StockLedger owns stock item status. Every mutation runs behind the gate
// because the row store cannot update conditionally.
type StockLedger struct {
	store  rowstore.Store
	gate   *Gate
	logger zerolog.Logger
}

type LedgerOption func(*StockLedger)

func WithLedgerLogger(logger zerolog.Logger) LedgerOption {
	return func(l *StockLedger) {
		l.logger = logger
	}
}

func NewStockLedger(store rowstore.Store, gate *Gate, opts ...LedgerOption) *StockLedger {
	l := &StockLedger{
		store:  store,
		gate:   gate,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type SweepResult struct {
	Scanned  int
	Repaired int
	Failed   int
	// Stalled lists paid reservations whose sale did not complete.
	Stalled []string
}

type RestockResult struct {
	Added      int
	Duplicates int
	Invalid    int
}

// Reserve holds the first quantity available items of the product for the
// reservation. On *domain.PartialWriteError the caller must release what
// was written.
func (l *StockLedger) Reserve(ctx context.Context, productID string, quantity int, reservationID string) (err error) {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	ctx, span := startSpan(ctx, "ledger.Reserve",
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
		attribute.String("reservation.id", reservationID),
	)
	defer func() { endSpan(span, err) }()

	return l.gate.Do(ctx, func(ctx context.Context) error {
		items, err := l.items(ctx, rowstore.Match{colProductID: productID})
		if err != nil {
			return err
		}
		available := items[:0]
		for _, it := range items {
			if _, ok := it.State.(domain.Available); ok {
				available = append(available, it)
			}
		}
		if len(available) < quantity {
			return &domain.InsufficientStockError{
				ProductID: productID,
				Requested: quantity,
				Available: len(available),
			}
		}

		held := domain.Held{ReservationID: reservationID}
		for i, it := range available[:quantity] {
			if err := l.store.UpdateRow(ctx, rowstore.TableStock, it.ID, stateFields(held)); err != nil {
				l.logger.Error().Err(err).
					Str("reservation_id", reservationID).
					Int("written", i).
					Msg("reserve stopped midway")
				return &domain.PartialWriteError{Written: i, Err: err}
			}
		}
		l.logger.Info().
			Str("product_id", productID).
			Str("reservation_id", reservationID).
			Int("quantity", quantity).
			Msg("stock held")
		return nil
	})
}

// Release returns every item held by the reservation to available. Unknown
// or already resolved reservations release nothing.
func (l *StockLedger) Release(ctx context.Context, reservationID string) (released int, err error) {
	ctx, span := startSpan(ctx, "ledger.Release", attribute.String("reservation.id", reservationID))
	defer func() { endSpan(span, err) }()

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		items, err := l.heldBy(ctx, reservationID)
		if err != nil {
			return err
		}
		var errs []error
		for _, it := range items {
			if err := l.store.UpdateRow(ctx, rowstore.TableStock, it.ID, stateFields(domain.Available{})); err != nil {
				errs = append(errs, fmt.Errorf("release row %s: %w", it.ID, err))
				continue
			}
			released++
		}
		return errors.Join(errs...)
	})
	if released > 0 {
		l.logger.Info().Str("reservation_id", reservationID).Int("released", released).Msg("stock released")
	}
	return released, err
}

// Finalize marks every item held by the reservation as sold to orderID and
// returns them in row order. It fails with domain.ErrNothingToFinalize when
// the reservation holds nothing, which means the sale was already resolved.
func (l *StockLedger) Finalize(ctx context.Context, reservationID, orderID string) (sold []domain.StockItem, err error) {
	ctx, span := startSpan(ctx, "ledger.Finalize",
		attribute.String("reservation.id", reservationID),
		attribute.String("order.id", orderID),
	)
	defer func() { endSpan(span, err) }()

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		items, err := l.heldBy(ctx, reservationID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrNothingToFinalize
		}
		state := domain.Sold{OrderID: orderID}
		for _, it := range items {
			if err := l.store.UpdateRow(ctx, rowstore.TableStock, it.ID, stateFields(state)); err != nil {
				return &domain.PartialWriteError{Written: len(sold), Err: err}
			}
			it.State = state
			sold = append(sold, it)
		}
		return nil
	})
	return sold, err
}

// SweepOrphans releases held items whose holder is not in live. Items held
// by live reservations are never touched.
func (l *StockLedger) SweepOrphans(ctx context.Context, live map[string]struct{}) (res SweepResult, err error) {
	ctx, span := startSpan(ctx, "ledger.SweepOrphans", attribute.Int("live", len(live)))
	defer func() { endSpan(span, err) }()

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		items, err := l.items(ctx, rowstore.Match{colStatus: string(domain.ItemStatusHeld)})
		if err != nil {
			return err
		}
		for _, it := range items {
			held, ok := it.State.(domain.Held)
			if !ok {
				continue
			}
			res.Scanned++
			if _, alive := live[held.ReservationID]; alive {
				continue
			}
			if err := l.store.UpdateRow(ctx, rowstore.TableStock, it.ID, stateFields(domain.Available{})); err != nil {
				l.logger.Warn().Err(err).Str("row_id", it.ID).Msg("sweep could not release orphan")
				res.Failed++
				continue
			}
			res.Repaired++
		}
		return nil
	})
	return res, err
}

// Restock appends credentials as available items. Lines must look like
// "user|password"; usernames already stocked for the product are skipped.
func (l *StockLedger) Restock(ctx context.Context, productID string, lines []string) (res RestockResult, err error) {
	ctx, span := startSpan(ctx, "ledger.Restock", attribute.String("product.id", productID))
	defer func() { endSpan(span, err) }()

	err = l.gate.Do(ctx, func(ctx context.Context) error {
		items, err := l.items(ctx, rowstore.Match{colProductID: productID})
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(items))
		for _, it := range items {
			seen[credentialUser(it.Credential)] = struct{}{}
		}

		var records []rowstore.Fields
		for _, line := range lines {
			cred, ok := parseCredential(line)
			if !ok {
				if strings.TrimSpace(line) != "" {
					res.Invalid++
				}
				continue
			}
			user := credentialUser(cred)
			if _, dup := seen[user]; dup {
				res.Duplicates++
				continue
			}
			seen[user] = struct{}{}
			fields := stateFields(domain.Available{})
			fields[colProductID] = productID
			fields[colCredential] = cred
			records = append(records, fields)
		}
		if len(records) == 0 {
			return nil
		}
		if err := l.store.AppendRows(ctx, rowstore.TableStock, records); err != nil {
			return fmt.Errorf("append stock: %w", err)
		}
		res.Added = len(records)
		return nil
	})
	return res, err
}

// AvailableCounts returns the number of available items per product. It
// only reads, so it does not wait for the gate.
func (l *StockLedger) AvailableCounts(ctx context.Context) (map[string]int, error) {
	items, err := l.items(ctx, rowstore.Match{colStatus: string(domain.ItemStatusAvailable)})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.ProductID]++
	}
	return counts, nil
}

func (l *StockLedger) heldBy(ctx context.Context, reservationID string) ([]domain.StockItem, error) {
	items, err := l.items(ctx, rowstore.Match{
		colStatus: string(domain.ItemStatusHeld),
		colHolder: reservationID,
	})
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if it.IsHeldBy(reservationID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (l *StockLedger) items(ctx context.Context, match rowstore.Match) ([]domain.StockItem, error) {
	rows, err := l.store.ListRows(ctx, rowstore.TableStock, match)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	items := make([]domain.StockItem, 0, len(rows))
	for _, row := range rows {
		state, err := domain.ParseItemState(row.Get(colStatus), row.Get(colHolder))
		if err != nil {
			l.logger.Warn().
				Str("row_id", row.ID).
				Str("status", row.Get(colStatus)).
				Msg("skipping stock row with unknown status")
			continue
		}
		items = append(items, domain.StockItem{
			ID:         row.ID,
			ProductID:  row.Get(colProductID),
			Credential: row.Get(colCredential),
			State:      state,
		})
	}
	return items, nil
}

func stateFields(state domain.ItemState) rowstore.Fields {
	return rowstore.Fields{
		colStatus: string(state.Status()),
		colHolder: state.Holder(),
	}
}

// parseCredential normalises "user|pass" into "user | pass". Values that a
// spreadsheet would read as a formula are prefixed with a quote.
func parseCredential(line string) (string, bool) {
	user, pass, ok := strings.Cut(line, "|")
	if !ok {
		return "", false
	}
	user = sanitizeCell(strings.TrimSpace(user))
	pass = sanitizeCell(strings.TrimSpace(pass))
	if user == "" || pass == "" {
		return "", false
	}
	return user + " | " + pass, true
}

func credentialUser(cred string) string {
	user, _, _ := strings.Cut(cred, "|")
	return strings.TrimSpace(user)
}

func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
