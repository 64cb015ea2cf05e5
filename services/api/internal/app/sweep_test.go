package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoa21023/salebot-telegram/services/api/internal/clock"
	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

func TestReconciler_ConvergesAfterRestart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4)
	stranded := f.reserve(t, "buyer-1", 2)

	// A restart loses the registry while the stock rows stay held.
	clk := clock.NewManual(testStart)
	f.registry = NewOrderRegistry(clk, clk)
	f.reconciler = NewReconciler(f.registry, f.ledger, WithReconcilerOperators(f.operators))
	f.holds = NewHoldService(f.catalog, f.ledger, f.registry, WithHoldTTL(testTTL))
	fresh := f.reserve(t, "buyer-2", 1)

	res, err := f.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 3, Repaired: 2}, res)

	_, byHolder := f.statusCounts(t)
	assert.NotContains(t, byHolder, stranded.ID)
	assert.Equal(t, 1, byHolder[fresh.ID])

	sent := f.operators.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message, "2 orphaned")

	res, err = f.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Scanned: 1}, res)
	assert.Len(t, f.operators.sent(), 1)
}

func TestReconciler_LeavesPendingReservationsAlone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	res := f.reserve(t, "buyer-1", 2)

	result, err := f.reconciler.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Repaired)

	got, err := f.settlement.HandlePayment(context.Background(), paid(res.ID, 40000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, got.Outcome)

	byStatus, _ := f.statusCounts(t)
	assert.Equal(t, 2, byStatus[domain.ItemStatusSold])
}
