package app

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/khoa21023/salebot-telegram/services/api/internal/clock"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

const defaultRetentionWindow = 15 * time.Minute

// OrderRegistry is the in-memory record of pending reservations. It is the
// source of truth only until the process stops.
type OrderRegistry struct {
	mu        sync.Mutex
	clock     clock.Clock
	scheduler clock.Scheduler
	retention time.Duration
	onExpire  func(reservationID string)

	entries map[string]*registryEntry
	// resolved remembers outcomes for the retention window; nil when
	// retention is disabled.
	resolved *expirable.LRU[string, domain.ReservationState]
}

type registryEntry struct {
	res     domain.Reservation
	timer   clock.Timer
	claimed bool
	// settling marks a claim taken by settlement rather than by a release.
	settling bool
}

type RegistryOption func(*OrderRegistry)

// WithRetentionWindow sets how long resolved ids are remembered so that
// late duplicates can be told apart from unknown references.
func WithRetentionWindow(d time.Duration) RegistryOption {
	return func(r *OrderRegistry) {
		if d >= 0 {
			r.retention = d
		}
	}
}

func NewOrderRegistry(clk clock.Clock, scheduler clock.Scheduler, opts ...RegistryOption) *OrderRegistry {
	r := &OrderRegistry{
		clock:     clk,
		scheduler: scheduler,
		retention: defaultRetentionWindow,
		entries:   make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retention > 0 {
		r.resolved = expirable.NewLRU[string, domain.ReservationState](0, nil, r.retention)
	}
	return r
}

// OnExpire installs the callback fired when a reservation's ttl elapses.
// It must be set before the first Create.
func (r *OrderRegistry) OnExpire(fn func(reservationID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// Create registers a pending reservation and arms its expiry timer.
func (r *OrderRegistry) Create(product domain.Product, quantity int, buyer domain.Buyer, ttl time.Duration) (domain.Reservation, error) {
	if quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	id, err := newReservationID()
	if err != nil {
		return domain.Reservation{}, err
	}

	now := r.clock.Now()
	res := domain.Reservation{
		ID:          id,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.UnitPrice,
		Buyer:       buyer,
		State:       domain.ReservationPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	entry := &registryEntry{res: res}
	r.entries[id] = entry
	if r.onExpire != nil {
		fire := r.onExpire
		entry.timer = r.scheduler.AfterFunc(ttl, func() { fire(id) })
	}
	return res, nil
}

// Get returns the pending reservation with the given id.
func (r *OrderRegistry) Get(id string) (domain.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return domain.Reservation{}, false
	}
	return entry.res, true
}

// Claim gives the caller exclusive right to release a pending reservation
// and disarms its expiry timer. Only one caller wins until Unclaim.
func (r *OrderRegistry) Claim(id string) (domain.Reservation, bool) {
	return r.claim(id, false)
}

// ClaimSettlement is Claim for a caller that is about to sell the stock.
func (r *OrderRegistry) ClaimSettlement(id string) (domain.Reservation, bool) {
	return r.claim(id, true)
}

func (r *OrderRegistry) claim(id string, settling bool) (domain.Reservation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok || entry.claimed {
		return domain.Reservation{}, false
	}
	entry.claimed = true
	entry.settling = settling
	r.disarm(entry)
	return entry.res, true
}

// Unclaim hands a claimed reservation back as plain pending. The expiry
// timer stays disarmed.
func (r *OrderRegistry) Unclaim(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[id]; ok {
		entry.claimed = false
		entry.settling = false
	}
}

// Releasing reports whether the reservation is being released or was
// released recently, as opposed to being settled.
func (r *OrderRegistry) Releasing(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		releasing := entry.claimed && !entry.settling
		r.mu.Unlock()
		return releasing
	}
	r.mu.Unlock()
	state, done := r.Resolved(id)
	return done && state == domain.ReservationReleased
}

// Stalled lists reservations whose payment was accepted but whose sale did
// not complete. They have no expiry timer and wait for a retry.
func (r *OrderRegistry) Stalled() []domain.Reservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reservation
	for _, entry := range r.entries {
		if !entry.claimed && entry.res.OrderID != "" {
			out = append(out, entry.res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AssignOrderID records the order id of a reservation once and returns the
// id in effect.
func (r *OrderRegistry) AssignOrderID(id, orderID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return "", domain.ErrReservationNotFound
	}
	if entry.res.OrderID == "" {
		entry.res.OrderID = orderID
	}
	return entry.res.OrderID, nil
}

// Resolve moves a pending reservation to its final state and forgets it.
func (r *OrderRegistry) Resolve(id string, outcome domain.ReservationState) error {
	if outcome != domain.ReservationSettled && outcome != domain.ReservationReleased {
		return domain.ErrReservationResolved
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		if _, done := r.Resolved(id); done {
			return domain.ErrReservationResolved
		}
		return domain.ErrReservationNotFound
	}
	r.disarm(entry)
	delete(r.entries, id)
	if r.resolved != nil {
		r.resolved.Add(id, outcome)
	}
	return nil
}

// Resolved reports the outcome of a recently resolved reservation.
func (r *OrderRegistry) Resolved(id string) (domain.ReservationState, bool) {
	if r.resolved == nil {
		return "", false
	}
	return r.resolved.Get(id)
}

// ListLiveIDs snapshots the ids of every pending reservation, claimed or not.
func (r *OrderRegistry) ListLiveIDs() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{}, len(r.entries))
	for id := range r.entries {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of pending reservations.
func (r *OrderRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *OrderRegistry) disarm(entry *registryEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
}
