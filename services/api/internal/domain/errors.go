package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidID           = errors.New("invalid id")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPartialWrite        = errors.New("partial write failure")
	ErrNothingToFinalize   = errors.New("nothing to finalize")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationResolved = errors.New("reservation already resolved")
	ErrNotReservationOwner = errors.New("reservation belongs to another buyer")
	ErrStaleReservation    = errors.New("stale or unknown reservation")
	ErrAmountMismatch      = errors.New("paid amount below order total")
	ErrNotification        = errors.New("notification failed")
	ErrInvalidSignature    = errors.New("invalid payment signature")
	ErrUnknownItemStatus   = errors.New("unknown stock item status")
	ErrNoCredentials       = errors.New("no credentials to add")
	ErrProductExists       = errors.New("product already exists")
	ErrInvalidProduct      = errors.New("product needs an id and a name")
	ErrInvalidPrice        = errors.New("invalid product price")
	ErrNotStalled          = errors.New("reservation has no accepted payment")
)

// InsufficientStockError reports how many units were available when a
// reservation could not be satisfied.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PartialWriteError is returned when a batch of row updates stopped midway.
// Written counts the rows that were updated before the failure.
type PartialWriteError struct {
	Written int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write failure after %d rows: %v", e.Written, e.Err)
}

func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
