package domain

import "github.com/shopspring/decimal"

type PaymentStatus string

const (
	PaymentPaid      PaymentStatus = "PAID"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentPending   PaymentStatus = "PENDING"
)

// PaymentEvent is a verified gateway callback. Delivery is at-least-once and
// may arrive after the reservation has expired.
type PaymentEvent struct {
	Reference  string
	AmountPaid decimal.Decimal
	Status     PaymentStatus
}
