package domain

import "github.com/shopspring/decimal"

// Product is read-only reference data maintained by the admin workflow.
type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
}
