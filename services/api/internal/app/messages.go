package app

import (
	"fmt"
	"strings"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

func expiredMessage(res domain.Reservation) string {
	return fmt.Sprintf("Order %s was cancelled because payment did not arrive in time.", res.ID)
}

func deliveryMessage(orderID string, items []domain.StockItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment received. Order %s\nAccounts:\n", orderID)
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.Credential)
	}
	return strings.TrimRight(b.String(), "\n")
}

func saleMessage(orderID string, res domain.Reservation, items int) string {
	return fmt.Sprintf("New sale %s: %s x%d, %s paid by %s", orderID, res.ProductName, items, res.Total().String(), buyerLabel(res.Buyer))
}

func amountMismatchMessage(res domain.Reservation, paid string) string {
	return fmt.Sprintf("Payment for %s is short: paid %s, expected %s. Reservation left pending.", res.ID, paid, res.Total().String())
}

func unknownPaymentMessage(ev domain.PaymentEvent) string {
	return fmt.Sprintf("Payment of %s received for unknown reservation %s. Manual follow-up needed.", ev.AmountPaid.String(), ev.Reference)
}

func invalidPriceMessage(productID string, err error) string {
	return fmt.Sprintf("A buyer tried to order %s but its price cannot be read (%v). Fix the price column in the products sheet.", productID, err)
}

func latePaymentMessage(ev domain.PaymentEvent) string {
	return fmt.Sprintf("Payment of %s arrived for reservation %s after it was released. Buyer received nothing; refund or resell manually.", ev.AmountPaid.String(), ev.Reference)
}

func settlementFailedMessage(res domain.Reservation, err error) string {
	return fmt.Sprintf("Settlement of %s failed after payment: %v. Stock is still held; redelivery or manual action needed.", res.ID, err)
}

func auditFailedMessage(orderID string, err error) string {
	return fmt.Sprintf("Order %s is sold but its history rows were not written: %v", orderID, err)
}

func buyerUnreachableMessage(orderID string, res domain.Reservation, err error) string {
	return fmt.Sprintf("Order %s delivered but buyer %s could not be notified: %v", orderID, buyerLabel(res.Buyer), err)
}

func lowStockMessage(res domain.Reservation, left int) string {
	return fmt.Sprintf("Low stock: %s has %d left.", res.ProductName, left)
}

func sweepMessage(r SweepResult) string {
	msg := fmt.Sprintf("Reconciliation released %d orphaned holds (%d failed, %d held scanned).", r.Repaired, r.Failed, r.Scanned)
	if len(r.Stalled) > 0 {
		msg += fmt.Sprintf(" Paid but unfinished: %s (retry with admin settle).", strings.Join(r.Stalled, ", "))
	}
	return msg
}

func buyerLabel(b domain.Buyer) string {
	if b.Name == "" {
		return b.ID
	}
	return fmt.Sprintf("%s (@%s)", b.ID, b.Name)
}
