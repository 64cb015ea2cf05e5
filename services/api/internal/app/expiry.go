package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

const defaultExpiryTimeout = 30 * time.Second

type stockReleaser interface {
	Release(ctx context.Context, reservationID string) (int, error)
}

// ExpiryScheduler releases reservations whose ttl elapsed without payment.
type ExpiryScheduler struct {
	registry *OrderRegistry
	ledger   stockReleaser
	buyers   BuyerNotifier
	logger   zerolog.Logger
	timeout  time.Duration
}

type ExpiryOption func(*ExpiryScheduler)

func WithExpiryLogger(logger zerolog.Logger) ExpiryOption {
	return func(s *ExpiryScheduler) {
		s.logger = logger
	}
}

// WithExpiryTimeout bounds the row store work done by one expiry.
func WithExpiryTimeout(d time.Duration) ExpiryOption {
	return func(s *ExpiryScheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewExpiryScheduler wires itself as the registry's expiry callback.
func NewExpiryScheduler(registry *OrderRegistry, ledger stockReleaser, buyers BuyerNotifier, opts ...ExpiryOption) *ExpiryScheduler {
	if buyers == nil {
		buyers = nopNotifier{}
	}
	s := &ExpiryScheduler{
		registry: registry,
		ledger:   ledger,
		buyers:   buyers,
		logger:   zerolog.Nop(),
		timeout:  defaultExpiryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	registry.OnExpire(s.fire)
	return s
}

func (s *ExpiryScheduler) fire(reservationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.Expire(ctx, reservationID)
}

// Expire releases a still-pending reservation. It reports false when the
// reservation was already settled, released or is being resolved.
func (s *ExpiryScheduler) Expire(ctx context.Context, reservationID string) bool {
	res, ok := s.registry.Claim(reservationID)
	if !ok {
		return false
	}

	released, err := s.ledger.Release(ctx, reservationID)
	if err != nil {
		// Whatever stays held becomes an orphan once the id is resolved;
		// the reconciliation sweep picks it up.
		s.logger.Error().Err(err).
			Str("reservation_id", reservationID).
			Int("released", released).
			Msg("expiry release incomplete")
	}
	if err := s.registry.Resolve(reservationID, domain.ReservationReleased); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("resolve expired reservation")
	}

	s.logger.Info().
		Str("reservation_id", reservationID).
		Int("released", released).
		Msg("reservation expired")

	if err := s.buyers.NotifyBuyer(ctx, res.Buyer.ID, expiredMessage(res)); err != nil {
		s.logger.Warn().Err(err).Str("buyer_id", res.Buyer.ID).Msg("expiry notification failed")
	}
	return true
}
