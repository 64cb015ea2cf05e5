// Package rowstore describes the tabular, non-transactional persistence the
// shop runs on. A store offers whole-table reads, single-row updates and
// appends, and nothing else: there is no compare-and-swap and no atomicity
// across calls.
package rowstore

import (
	"context"
	"errors"
)

// Table names used by the shop.
const (
	TableProducts = "products"
	TableStock    = "stock"
	TableHistory  = "history"
)

var ErrRowNotFound = errors.New("row not found")

// Fields holds column values of a row.
type Fields map[string]string

// Row is a stored record. Rows are returned in insertion order.
type Row struct {
	ID     string
	Fields Fields
}

// Get returns the value of a column, or "" when absent.
func (r Row) Get(column string) string {
	return r.Fields[column]
}

// Match selects rows whose columns equal every given value. An empty Match
// selects all rows.
type Match map[string]string

// Matches reports whether the fields satisfy the match.
func (m Match) Matches(f Fields) bool {
	for k, v := range m {
		if f[k] != v {
			return false
		}
	}
	return true
}

// Store is the row store adapter.
type Store interface {
	ListRows(ctx context.Context, table string, match Match) ([]Row, error)
	// UpdateRow merges patch into the row's fields.
	UpdateRow(ctx context.Context, table, rowID string, patch Fields) error
	AppendRows(ctx context.Context, table string, records []Fields) error
}
