package app

import "context"

// BuyerNotifier delivers messages to a buyer. Delivery is best effort.
type BuyerNotifier interface {
	NotifyBuyer(ctx context.Context, buyerID, message string) error
}

// OperatorNotifier delivers messages to the shop operators.
type OperatorNotifier interface {
	NotifyOperators(ctx context.Context, message string) error
}

type nopNotifier struct{}

func (nopNotifier) NotifyBuyer(context.Context, string, string) error { return nil }
func (nopNotifier) NotifyOperators(context.Context, string) error { return nil }
