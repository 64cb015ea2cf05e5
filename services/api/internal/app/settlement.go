package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/khoa21023/salebot-telegram/services/api/internal/clock"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

const (
	defaultLowStockThreshold = 3
	defaultSettleTimeout     = 30 * time.Second
)

type settlementLedger interface {
	Finalize(ctx context.Context, reservationID, orderID string) ([]domain.StockItem, error)
	AvailableCounts(ctx context.Context) (map[string]int, error)
}

type SettlementOutcome string

const (
	OutcomeSettled        SettlementOutcome = "settled"
	OutcomeDuplicate      SettlementOutcome = "duplicate"
	OutcomeStale          SettlementOutcome = "stale"
	OutcomeAmountMismatch SettlementOutcome = "amount_mismatch"
	OutcomeIgnored        SettlementOutcome = "ignored"
	OutcomeFailed         SettlementOutcome = "failed"
)

type SettlementResult struct {
	Outcome       SettlementOutcome
	ReservationID string
	OrderID       string
	Items         []domain.StockItem
	// NotifyErr is set when the sale went through but a notification did
	// not. The sale is never rolled back for it.
	NotifyErr error
}

// SettlementCoordinator turns confirmed payments into sold stock and audit
// history. It is safe under duplicate and late delivery.
type SettlementCoordinator struct {
	registry  *OrderRegistry
	ledger    settlementLedger
	audit     *AuditLog
	clock     clock.Clock
	buyers    BuyerNotifier
	operators OperatorNotifier
	logger    zerolog.Logger
	lowStock  int
	timeout   time.Duration
}

type SettlementOption func(*SettlementCoordinator)

func WithSettlementLogger(logger zerolog.Logger) SettlementOption {
	return func(c *SettlementCoordinator) {
		c.logger = logger
	}
}

func WithNotifiers(buyers BuyerNotifier, operators OperatorNotifier) SettlementOption {
	return func(c *SettlementCoordinator) {
		if buyers != nil {
			c.buyers = buyers
		}
		if operators != nil {
			c.operators = operators
		}
	}
}

// WithLowStockThreshold sets the remaining count at or below which
// operators are warned after a sale. Negative disables the warning.
func WithLowStockThreshold(n int) SettlementOption {
	return func(c *SettlementCoordinator) {
		c.lowStock = n
	}
}

// WithSettleTimeout bounds the work done after a reservation is claimed.
// That work no longer follows the caller's context.
func WithSettleTimeout(d time.Duration) SettlementOption {
	return func(c *SettlementCoordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewSettlementCoordinator(registry *OrderRegistry, ledger settlementLedger, audit *AuditLog, clk clock.Clock, opts ...SettlementOption) *SettlementCoordinator {
	c := &SettlementCoordinator{
		registry:  registry,
		ledger:    ledger,
		audit:     audit,
		clock:     clk,
		buyers:    nopNotifier{},
		operators: nopNotifier{},
		logger:    zerolog.Nop(),
		lowStock:  defaultLowStockThreshold,
		timeout:   defaultSettleTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandlePayment applies a verified payment event. The returned error is for
// logging only: gateway deliveries must always be acknowledged.
func (c *SettlementCoordinator) HandlePayment(ctx context.Context, ev domain.PaymentEvent) (result SettlementResult, err error) {
	ctx, span := startSpan(ctx, "settlement.HandlePayment",
		attribute.String("reservation.id", ev.Reference),
		attribute.String("payment.status", string(ev.Status)),
	)
	defer func() {
		span.SetAttributes(attribute.String("settlement.outcome", string(result.Outcome)))
		endSpan(span, err)
	}()

	result.ReservationID = ev.Reference
	log := c.logger.With().Str("reservation_id", ev.Reference).Logger()

	if ev.Status != domain.PaymentPaid {
		log.Info().Str("status", string(ev.Status)).Msg("ignoring unpaid payment event")
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	res, ok := c.registry.Get(ev.Reference)
	if !ok {
		if state, done := c.registry.Resolved(ev.Reference); done {
			if state == domain.ReservationReleased {
				c.latePayment(ctx, ev)
			} else {
				log.Info().Str("state", string(state)).Msg("duplicate payment event")
			}
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
		log.Warn().Str("amount", ev.AmountPaid.String()).Msg("payment for unknown reservation")
		c.alert(ctx, unknownPaymentMessage(ev))
		result.Outcome = OutcomeStale
		return result, domain.ErrStaleReservation
	}

	if ev.AmountPaid.LessThan(res.Total()) {
		log.Warn().
			Str("paid", ev.AmountPaid.String()).
			Str("expected", res.Total().String()).
			Msg("payment below order total")
		c.alert(ctx, amountMismatchMessage(res, ev.AmountPaid.String()))
		result.Outcome = OutcomeAmountMismatch
		return result, domain.ErrAmountMismatch
	}

	res, ok = c.registry.ClaimSettlement(ev.Reference)
	if !ok {
		if c.registry.Releasing(ev.Reference) {
			c.latePayment(ctx, ev)
		} else {
			log.Info().Msg("reservation is already being settled")
		}
		result.Outcome = OutcomeDuplicate
		return result, nil
	}

	// Past the claim the sale must complete even if the gateway hangs up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	return c.settle(ctx, res, result)
}

// Retry finishes a stalled sale: one whose payment was accepted but whose
// items could not all be sold.
func (c *SettlementCoordinator) Retry(ctx context.Context, reservationID string) (result SettlementResult, err error) {
	ctx, span := startSpan(ctx, "settlement.Retry", attribute.String("reservation.id", reservationID))
	defer func() {
		span.SetAttributes(attribute.String("settlement.outcome", string(result.Outcome)))
		endSpan(span, err)
	}()

	result.ReservationID = reservationID
	res, ok := c.registry.Get(reservationID)
	if !ok {
		if _, done := c.registry.Resolved(reservationID); done {
			return result, domain.ErrReservationResolved
		}
		return result, domain.ErrReservationNotFound
	}
	if res.OrderID == "" {
		return result, domain.ErrNotStalled
	}
	res, ok = c.registry.ClaimSettlement(reservationID)
	if !ok {
		return result, domain.ErrReservationResolved
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	return c.settle(ctx, res, result)
}

// settle sells the items of a claimed reservation.
func (c *SettlementCoordinator) settle(ctx context.Context, res domain.Reservation, result SettlementResult) (SettlementResult, error) {
	log := c.logger.With().Str("reservation_id", res.ID).Logger()

	orderID := res.OrderID
	if orderID == "" {
		var err error
		if orderID, err = newOrderID(); err != nil {
			c.registry.Unclaim(res.ID)
			result.Outcome = OutcomeFailed
			return result, err
		}
		if orderID, err = c.registry.AssignOrderID(res.ID, orderID); err != nil {
			result.Outcome = OutcomeFailed
			return result, err
		}
		res.OrderID = orderID
	}
	result.OrderID = orderID

	items, err := c.ledger.Finalize(ctx, res.ID, orderID)
	switch {
	case errors.Is(err, domain.ErrNothingToFinalize):
		return c.nothingToFinalize(ctx, res, result)
	case err != nil:
		return c.finalizeFailed(ctx, res, items, result, err)
	}
	result.Items = items

	if err := c.audit.record(ctx, c.auditRecords(res, orderID, items)); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("audit append failed")
		c.alert(ctx, auditFailedMessage(orderID, err))
	}
	if err := c.registry.Resolve(res.ID, domain.ReservationSettled); err != nil {
		log.Warn().Err(err).Msg("resolve settled reservation")
	}
	log.Info().Str("order_id", orderID).Int("items", len(items)).Msg("reservation settled")

	result.Outcome = OutcomeSettled
	result.NotifyErr = c.announce(ctx, res, orderID, items)
	c.checkLowStock(ctx, res)
	return result, nil
}

// latePayment reports money received for a reservation that was released
// or is being released. The buyer gets nothing, so a human must follow up.
func (c *SettlementCoordinator) latePayment(ctx context.Context, ev domain.PaymentEvent) {
	c.logger.Warn().
		Str("reservation_id", ev.Reference).
		Str("amount", ev.AmountPaid.String()).
		Msg("payment for released reservation")
	c.alert(ctx, latePaymentMessage(ev))
}

func (c *SettlementCoordinator) nothingToFinalize(ctx context.Context, res domain.Reservation, result SettlementResult) (SettlementResult, error) {
	outcome := domain.ReservationReleased
	if res.OrderID != "" {
		// An earlier attempt already sold the items.
		outcome = domain.ReservationSettled
	} else {
		c.logger.Warn().Str("reservation_id", res.ID).Msg("paid reservation holds no stock")
		c.alert(ctx, settlementFailedMessage(res, domain.ErrNothingToFinalize))
	}
	if err := c.registry.Resolve(res.ID, outcome); err != nil {
		c.logger.Warn().Err(err).Str("reservation_id", res.ID).Msg("resolve reservation")
	}
	result.Outcome = OutcomeDuplicate
	return result, nil
}

func (c *SettlementCoordinator) finalizeFailed(ctx context.Context, res domain.Reservation, sold []domain.StockItem, result SettlementResult, err error) (SettlementResult, error) {
	if len(sold) > 0 {
		if auditErr := c.audit.record(ctx, c.auditRecords(res, result.OrderID, sold)); auditErr != nil {
			c.logger.Error().Err(auditErr).Str("order_id", result.OrderID).Msg("audit append failed")
		}
	}
	// Leave it pending without a timer: the buyer paid, so the stock must
	// not expire. A redelivered event or an operator finishes the sale.
	c.registry.Unclaim(res.ID)
	c.logger.Error().Err(err).
		Str("reservation_id", res.ID).
		Int("sold", len(sold)).
		Msg("finalize failed")
	c.alert(ctx, settlementFailedMessage(res, err))

	result.Items = sold
	result.Outcome = OutcomeFailed
	return result, fmt.Errorf("finalize %s: %w", res.ID, err)
}

func (c *SettlementCoordinator) auditRecords(res domain.Reservation, orderID string, items []domain.StockItem) []domain.AuditRecord {
	now := c.clock.Now()
	records := make([]domain.AuditRecord, 0, len(items))
	for _, it := range items {
		records = append(records, domain.AuditRecord{
			Timestamp:     now,
			BuyerID:       res.Buyer.ID,
			BuyerName:     res.Buyer.Name,
			ProductID:     res.ProductID,
			ProductName:   res.ProductName,
			Credential:    it.Credential,
			ReservationID: res.ID,
			OrderID:       orderID,
		})
	}
	return records
}

func (c *SettlementCoordinator) announce(ctx context.Context, res domain.Reservation, orderID string, items []domain.StockItem) error {
	var errs []error
	if err := c.buyers.NotifyBuyer(ctx, res.Buyer.ID, deliveryMessage(orderID, items)); err != nil {
		c.logger.Error().Err(err).Str("order_id", orderID).Str("buyer_id", res.Buyer.ID).Msg("buyer notification failed")
		errs = append(errs, fmt.Errorf("%w: buyer: %w", domain.ErrNotification, err))
		c.alert(ctx, buyerUnreachableMessage(orderID, res, err))
	}
	if err := c.operators.NotifyOperators(ctx, saleMessage(orderID, res, len(items))); err != nil {
		c.logger.Error().Err(err).Str("order_id", orderID).Msg("operator notification failed")
		errs = append(errs, fmt.Errorf("%w: operators: %w", domain.ErrNotification, err))
	}
	return errors.Join(errs...)
}

func (c *SettlementCoordinator) checkLowStock(ctx context.Context, res domain.Reservation) {
	if c.lowStock < 0 {
		return
	}
	counts, err := c.ledger.AvailableCounts(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("low stock check failed")
		return
	}
	if left := counts[res.ProductID]; left <= c.lowStock {
		c.alert(ctx, lowStockMessage(res, left))
	}
}

// alert notifies operators even when ctx was cancelled.
func (c *SettlementCoordinator) alert(ctx context.Context, msg string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	if err := c.operators.NotifyOperators(ctx, msg); err != nil {
		c.logger.Error().Err(err).Str("message", msg).Msg("operator alert failed")
	}
}
