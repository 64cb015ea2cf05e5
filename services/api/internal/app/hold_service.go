package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type HoldLedger interface {
	Reserve(ctx context.Context, productID string, quantity int, reservationID string) error
	Release(ctx context.Context, reservationID string) (int, error)
}

// HoldService runs checkout: it registers a reservation, holds its stock and
// lets the buyer cancel it.
type HoldService struct {
	catalog  ProductLookup
	ledger   HoldLedger
	registry *OrderRegistry
	holdTTL   time.Duration
	operators OperatorNotifier
	logger    zerolog.Logger
}

const defaultHoldTTL = 5 * time.Minute

func NewHoldService(catalog ProductLookup, ledger HoldLedger, registry *OrderRegistry, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		catalog:   catalog,
		ledger:    ledger,
		registry:  registry,
		holdTTL:   defaultHoldTTL,
		operators: nopNotifier{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithHoldLogger(logger zerolog.Logger) HoldServiceOption {
	return func(s *HoldService) {
		s.logger = logger
	}
}

// WithHoldOperators sets who hears about products that cannot be sold
// because of a bad catalog row.
func WithHoldOperators(operators OperatorNotifier) HoldServiceOption {
	return func(s *HoldService) {
		if operators != nil {
			s.operators = operators
		}
	}
}

type CreateHoldInput struct {
	ProductID string
	Quantity  int
	Buyer     domain.Buyer
}

// CreateHold reserves stock for a buyer. The reservation is registered
// before any item is held so that a concurrent sweep never mistakes its
// holds for orphans.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if in.Buyer.ID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if errors.Is(err, domain.ErrInvalidPrice) {
		s.logger.Error().Err(err).Str("product_id", in.ProductID).Msg("product has no usable price")
		if nerr := s.operators.NotifyOperators(ctx, invalidPriceMessage(in.ProductID, err)); nerr != nil {
			s.logger.Warn().Err(nerr).Msg("invalid price notification failed")
		}
		return domain.Reservation{}, err
	}
	if err != nil {
		return domain.Reservation{}, err
	}

	res, err := s.registry.Create(product, in.Quantity, in.Buyer, s.holdTTL)
	if err != nil {
		return domain.Reservation{}, err
	}

	if err := s.ledger.Reserve(ctx, product.ID, in.Quantity, res.ID); err != nil {
		s.abandon(ctx, res.ID, err)
		return domain.Reservation{}, err
	}

	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("product_id", product.ID).
		Str("buyer_id", in.Buyer.ID).
		Int("quantity", in.Quantity).
		Time("expires_at", res.ExpiresAt).
		Msg("hold created")
	return res, nil
}

// abandon undoes a reservation whose stock could not be held.
func (s *HoldService) abandon(ctx context.Context, reservationID string, cause error) {
	if _, ok := s.registry.Claim(reservationID); !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if !errors.Is(cause, domain.ErrInsufficientStock) {
		if n, err := s.ledger.Release(ctx, reservationID); err != nil {
			s.logger.Error().Err(err).
				Str("reservation_id", reservationID).
				Int("released", n).
				Msg("release after failed hold")
		}
	}
	if err := s.registry.Resolve(reservationID, domain.ReservationReleased); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("resolve abandoned hold")
	}
}

// CancelHold releases a pending reservation on the buyer's request.
func (s *HoldService) CancelHold(ctx context.Context, reservationID, buyerID string) (domain.Reservation, error) {
	res, ok := s.registry.Get(reservationID)
	if !ok {
		if _, done := s.registry.Resolved(reservationID); done {
			return domain.Reservation{}, domain.ErrReservationResolved
		}
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	if res.Buyer.ID != buyerID {
		return domain.Reservation{}, domain.ErrNotReservationOwner
	}

	res, ok = s.registry.Claim(reservationID)
	if !ok {
		return domain.Reservation{}, domain.ErrReservationResolved
	}

	released, err := s.ledger.Release(ctx, reservationID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("reservation_id", reservationID).
			Int("released", released).
			Msg("cancel release incomplete")
	}
	if err := s.registry.Resolve(reservationID, domain.ReservationReleased); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("resolve cancelled hold")
	}
	res.State = domain.ReservationReleased

	s.logger.Info().
		Str("reservation_id", reservationID).
		Int("released", released).
		Msg("hold cancelled")
	return res, nil
}
