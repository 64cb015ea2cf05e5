package domain

import "time"

// AuditRecord is the append-only trace of one sold credential.
type AuditRecord struct {
	Timestamp     time.Time
	BuyerID       string
	BuyerName     string
	ProductID     string
	ProductName   string
	Credential    string
	ReservationID string
	OrderID       string
}
