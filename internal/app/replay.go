package app

import (
	"context"
	"errors"

	"incubator-alerts/internal/storage"
)

// Replay re-evaluates stored readings against the current thresholds.
// Useful after a threshold change to surface episodes the old limits
// missed; the ledger's dedup keeps repeated runs idempotent.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	if !opts.From.Before(opts.To) {
		return errors.New("replay window is empty; check --from/--to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot replay")
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipe := a.newPipeline(store, store, store)

	stats, err := pipe.monitor.Replay(ctx, storage.ReadingFilter{
		IncubatorID: opts.IncubatorID,
		PatientID:   opts.PatientID,
		From:        opts.From.UTC(),
		To:          opts.To.UTC(),
	})
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("readings", stats.Readings).
		Int("candidates", stats.Candidates).
		Int("failed", stats.Failed).
		Msg("replay finished")
	if stats.Failed > 0 {
		return errors.New("some readings failed to replay; check logs")
	}
	return nil
}
