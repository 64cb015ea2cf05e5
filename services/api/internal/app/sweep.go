package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type orphanSweeper interface {
	SweepOrphans(ctx context.Context, live map[string]struct{}) (SweepResult, error)
}

// Reconciler releases holds whose reservation the registry no longer
// knows, which happens after a restart or a crash mid-settlement. It also
// reminds operators of paid reservations still waiting on a retry.
type Reconciler struct {
	registry  *OrderRegistry
	ledger    orphanSweeper
	operators OperatorNotifier
	logger    zerolog.Logger
}

type ReconcilerOption func(*Reconciler)

func WithReconcilerLogger(logger zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithReconcilerOperators(operators OperatorNotifier) ReconcilerOption {
	return func(r *Reconciler) {
		if operators != nil {
			r.operators = operators
		}
	}
}

func NewReconciler(registry *OrderRegistry, ledger orphanSweeper, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		registry:  registry,
		ledger:    ledger,
		operators: nopNotifier{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep runs one reconciliation pass. It is safe while reservations are
// pending: their ids are in the live set and their holds are left alone.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	res, err := r.ledger.SweepOrphans(ctx, r.registry.ListLiveIDs())
	if err != nil {
		r.logger.Error().Err(err).Msg("reconciliation sweep failed")
		return res, err
	}
	for _, stalled := range r.registry.Stalled() {
		res.Stalled = append(res.Stalled, stalled.ID)
	}
	r.logger.Info().
		Int("scanned", res.Scanned).
		Int("repaired", res.Repaired).
		Int("failed", res.Failed).
		Strs("stalled", res.Stalled).
		Msg("reconciliation sweep done")
	if res.Repaired > 0 || res.Failed > 0 || len(res.Stalled) > 0 {
		if err := r.operators.NotifyOperators(ctx, sweepMessage(res)); err != nil {
			r.logger.Warn().Err(err).Msg("sweep report notification failed")
		}
	}
	return res, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
