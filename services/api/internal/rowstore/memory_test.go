package rowstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ListRowsFiltersInInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AppendRows(ctx, TableStock, []Fields{
		{"product_id": "p1", "status": "available"},
		{"product_id": "p2", "status": "available"},
		{"product_id": "p1", "status": "held"},
	}))

	rows, err := m.ListRows(ctx, TableStock, Match{"product_id": "p1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "3", rows[1].ID)
	assert.Equal(t, "held", rows[1].Get("status"))
	assert.Equal(t, "", rows[1].Get("missing"))

	all, err := m.ListRows(ctx, TableStock, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := m.ListRows(ctx, TableHistory, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_UpdateRowMergesPatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.AppendRows(ctx, TableStock, []Fields{{"status": "available", "credential": "u | p"}}))

	require.NoError(t, m.UpdateRow(ctx, TableStock, "1", Fields{"status": "held", "holder_id": "r1"}))

	rows, err := m.ListRows(ctx, TableStock, nil)
	require.NoError(t, err)
	assert.Equal(t, Fields{"status": "held", "holder_id": "r1", "credential": "u | p"}, rows[0].Fields)

	assert.ErrorIs(t, m.UpdateRow(ctx, TableStock, "42", Fields{"status": "sold"}), ErrRowNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	rec := Fields{"status": "available"}
	require.NoError(t, m.AppendRows(ctx, TableStock, []Fields{rec}))
	rec["status"] = "sold"

	rows, err := m.ListRows(ctx, TableStock, nil)
	require.NoError(t, err)
	rows[0].Fields["status"] = "held"

	again, err := m.ListRows(ctx, TableStock, nil)
	require.NoError(t, err)
	assert.Equal(t, "available", again[0].Get("status"))
}

func TestMemory_FailureHooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("quota exceeded")
	require.NoError(t, m.AppendRows(ctx, TableStock, []Fields{{"status": "available"}}))

	m.FailUpdate = func(string, string, Fields) error { return boom }
	m.FailAppend = func(string, []Fields) error { return boom }

	assert.ErrorIs(t, m.UpdateRow(ctx, TableStock, "1", Fields{"status": "held"}), boom)
	assert.ErrorIs(t, m.AppendRows(ctx, TableStock, []Fields{{"status": "available"}}), boom)

	rows, err := m.ListRows(ctx, TableStock, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "available", rows[0].Get("status"))
}

func TestMemory_HonoursCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()

	_, err := m.ListRows(ctx, TableStock, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.AppendRows(ctx, TableStock, []Fields{{}}), context.Canceled)
	assert.ErrorIs(t, m.UpdateRow(ctx, TableStock, "1", Fields{}), context.Canceled)
}
