package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationState string

const (
	ReservationPending  ReservationState = "pending"
	ReservationSettled  ReservationState = "settled"
	ReservationReleased ReservationState = "released"
)

// Buyer identifies who placed a reservation on the chat channel.
type Buyer struct {
	ID   string
	Name string
}

// Reservation is an in-flight order holding stock until payment, expiry or
// cancellation. It only lives in memory; the durable trace is the stock
// status plus the audit history.
type Reservation struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Buyer       Buyer
	State       ReservationState
	// OrderID is allocated on the first settlement attempt.
	OrderID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Total is the amount the buyer has to pay.
func (r Reservation) Total() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}
