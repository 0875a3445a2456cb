package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/engine"
	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/scheduler"
	"incubator-alerts/internal/storage"
	"incubator-alerts/internal/vitals"
)

// Monitor drives one reading through persistence, evaluation, and the alert
// ledger. Distinct readings may be processed concurrently; the ledger
// serializes the only contended step.
type Monitor struct {
	engine   *engine.Engine
	ledger   *ledger.Ledger
	readings storage.ReadingStore
	retries  int
	backoff  time.Duration
	logger   zerolog.Logger
}

// New constructs the monitoring service. retries/backoff govern submit
// retry behaviour on retryable store failures.
func New(eng *engine.Engine, led *ledger.Ledger, readings storage.ReadingStore, retries int, backoff time.Duration, logger zerolog.Logger) *Monitor {
	if retries < 0 {
		retries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Monitor{
		engine:   eng,
		ledger:   led,
		readings: readings,
		retries:  retries,
		backoff:  backoff,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Process ingests one reading: store it, evaluate it, and submit every
// resulting candidate. A failed submit never suppresses the remaining
// candidates, and the reading itself is kept even when evaluation fails.
func (m *Monitor) Process(ctx context.Context, reading vitals.Reading) ([]vitals.Alert, error) {
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	if m.readings != nil {
		if _, err := m.readings.InsertReading(ctx, reading); err != nil {
			m.logger.Error().Err(err).
				Str("incubadora_id", reading.IncubatorID).
				Msg("failed to persist reading")
		}
	}

	return m.evaluateAndSubmit(ctx, reading)
}

// ReplayStats summarises a historical re-evaluation run.
type ReplayStats struct {
	Readings   int
	Candidates int
	Failed     int
}

// Replay re-evaluates stored readings against the current thresholds,
// checking for cancellation between readings so long runs can be stopped
// cooperatively.
func (m *Monitor) Replay(ctx context.Context, f storage.ReadingFilter) (ReplayStats, error) {
	var stats ReplayStats
	if m.readings == nil {
		return stats, errors.New("reading store not configured")
	}

	stored, err := m.readings.ListReadings(ctx, f)
	if err != nil {
		return stats, err
	}

	for _, sr := range stored {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		alerts, err := m.evaluateAndSubmit(ctx, sr.Reading)
		if err != nil {
			stats.Failed++
			m.logger.Error().Err(err).
				Str("lectura_id", sr.ID.String()).
				Msg("replay evaluation failed")
			continue
		}
		stats.Readings++
		stats.Candidates += len(alerts)
	}
	return stats, nil
}

// SweepReadings returns a scheduler tick that deletes readings older than
// maxAge. Alerts are exempt; they are retained for audit.
func (m *Monitor) SweepReadings(maxAge time.Duration) scheduler.TickFunc {
	return func(ctx context.Context, now time.Time) error {
		removed, err := m.readings.DeleteReadingsBefore(ctx, now.Add(-maxAge))
		if err != nil {
			return err
		}
		if removed > 0 {
			m.logger.Info().Int64("removed", removed).Msg("retention sweep completed")
		}
		return nil
	}
}

func (m *Monitor) evaluateAndSubmit(ctx context.Context, reading vitals.Reading) ([]vitals.Alert, error) {
	candidates, err := m.engine.Evaluate(ctx, reading)
	if err != nil {
		return nil, err
	}

	alerts := make([]vitals.Alert, 0, len(candidates))
	for _, c := range candidates {
		alert, err := m.submitWithRetry(ctx, c)
		if err != nil {
			// The clinical signal must not disappear quietly: exhausted
			// retries escalate to an operational error log.
			m.logger.Error().Err(err).
				Str("tipo_alerta", c.Type).
				Str("incubadora_id", c.IncubatorID).
				Msg("alert submission failed after retries")
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (m *Monitor) submitWithRetry(ctx context.Context, c vitals.Candidate) (vitals.Alert, error) {
	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		if attempt > 0 {
			if err := sleepJittered(ctx, time.Duration(attempt)*m.backoff); err != nil {
				return vitals.Alert{}, err
			}
		}

		alert, err := m.ledger.Submit(ctx, c)
		if err == nil {
			return alert, nil
		}
		lastErr = err
		if !errors.Is(err, vitals.ErrStoreUnavailable) {
			break
		}
	}
	return vitals.Alert{}, lastErr
}

func sleepJittered(ctx context.Context, base time.Duration) error {
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
