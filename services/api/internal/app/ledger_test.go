package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

func TestStockLedger_ReserveTakesRowsInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	ctx := context.Background()
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2, "r1"))

	rows, err := f.store.ListRows(ctx, rowstore.TableStock, nil)
	require.NoError(t, err)
	assert.Equal(t, "r1", rows[0].Get(colHolder))
	assert.Equal(t, "r1", rows[1].Get(colHolder))
	assert.Equal(t, string(domain.ItemStatusAvailable), rows[2].Get(colStatus))
}

func TestStockLedger_ReleaseAndFinalizeOnlyTouchTheirHolder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4)
	ctx := context.Background()
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2, "r1"))
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2, "r2"))

	n, err := f.ledger.Release(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.ledger.Release(ctx, "r1")
	require.NoError(t, err)
	assert.Zero(t, n)

	sold, err := f.ledger.Finalize(ctx, "r2", "ORD-2")
	require.NoError(t, err)
	require.Len(t, sold, 2)
	assert.Equal(t, domain.Sold{OrderID: "ORD-2"}, sold[0].State)

	_, err = f.ledger.Finalize(ctx, "r2", "ORD-2")
	assert.ErrorIs(t, err, domain.ErrNothingToFinalize)

	counts, err := f.ledger.AvailableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 2}, counts)
}

func TestStockLedger_SweepOrphans(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 5)
	ctx := context.Background()
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2, "live"))
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2, "orphan"))

	live := map[string]struct{}{"live": {}}
	res, err := f.ledger.SweepOrphans(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 4, Repaired: 2}, res)

	_, byHolder := f.statusCounts(t)
	assert.Equal(t, map[string]int{"live": 2}, byHolder)

	res, err = f.ledger.SweepOrphans(ctx, live)
	require.NoError(t, err)
	assert.Zero(t, res.Repaired)
}

func TestStockLedger_SkipsUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()
	require.NoError(t, f.store.AppendRows(ctx, rowstore.TableStock, []rowstore.Fields{
		{colProductID: "p1", colCredential: "x | y", colStatus: "broken"},
	}))

	err := f.ledger.Reserve(ctx, "p1", 2, "r1")
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Available)
}

func TestStockLedger_Restock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	res, err := f.ledger.Restock(ctx, "p1", []string{
		"alice|secret",
		"bob | hunter2",
		"alice|other",
		"p1-user0|dup",
		"no-separator",
		"=cmd|x",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, RestockResult{Added: 3, Duplicates: 2, Invalid: 1}, res)

	rows, err := f.store.ListRows(ctx, rowstore.TableStock, rowstore.Match{colProductID: "p1"})
	require.NoError(t, err)
	var creds []string
	for _, row := range rows[1:] {
		creds = append(creds, row.Get(colCredential))
		assert.Equal(t, string(domain.ItemStatusAvailable), row.Get(colStatus))
	}
	assert.Equal(t, []string{"alice | secret", "bob | hunter2", "'=cmd | x"}, creds)
}
