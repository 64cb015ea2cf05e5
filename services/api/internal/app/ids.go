package app

import (
	"fmt"

	"github.com/google/uuid"
)

const orderIDPrefix = "ORD-"

// newReservationID returns a UUIDv7: a millisecond timestamp followed by
// random bits, so ids never collide inside a ttl window and sort by age.
func newReservationID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate reservation id: %w", err)
	}
	return id.String(), nil
}

func newOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return orderIDPrefix + id.String(), nil
}
