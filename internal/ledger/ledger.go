package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/vitals"
)

var (
	// ErrNotFound is returned when operating on an unknown alert id.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalidTransition is returned for lifecycle operations attempted
	// from a terminal or incompatible state.
	ErrInvalidTransition = errors.New("invalid alert state transition")
)

// Store persists alert rows. The ledger is the only writer of alert state.
type Store interface {
	GetAlert(ctx context.Context, id uuid.UUID) (*vitals.Alert, error)
	GetActiveAlertByKey(ctx context.Context, incubatorID, patientID, alertType string) (*vitals.Alert, error)
	InsertAlert(ctx context.Context, a vitals.Alert) error
	UpdateAlert(ctx context.Context, a vitals.Alert) error
	ListAlerts(ctx context.Context, f Filter) ([]vitals.Alert, error)
}

// Filter narrows alert queries. Zero fields match everything.
type Filter struct {
	IncubatorID string
	PatientID   string
	States      []vitals.State
	Severities  []vitals.Severity
	Limit       int
}

// Ledger owns the alert lifecycle: activa -> reconocida -> resuelta, with
// activa -> resuelta also permitted and resuelta terminal. Submissions are
// de-duplicated per (incubator, patient, alert type) against alerts still
// activa.
type Ledger struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	subs     []func(Event)
}

// New constructs a Ledger. timeout bounds every persistence call; zero
// means no bound.
func New(store Store, timeout time.Duration, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		timeout:  timeout,
		logger:   logger.With().Str("component", "ledger").Logger(),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// Subscribe registers a handler for lifecycle events. Handlers run
// synchronously on the transition path and must hand off anything slow.
func (l *Ledger) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Submit records a candidate alert. While a prior alert for the same
// de-duplication key is still activa, the candidate is merged into it in
// place; otherwise a new alert row is created. Two concurrent submits for
// one key serialize so that exactly one row results.
func (l *Ledger) Submit(ctx context.Context, c vitals.Candidate) (vitals.Alert, error) {
	lock := l.lockFor(c.DedupKey())
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := l.bound(ctx)
	defer cancel()

	existing, err := l.store.GetActiveAlertByKey(ctx, c.IncubatorID, c.PatientID, c.Type)
	if err != nil {
		return vitals.Alert{}, fmt.Errorf("submit: lookup active alert: %w", err)
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Value = c.Value
		existing.Severity = c.Severity
		existing.Threshold = c.Bound
		existing.Message = c.Message
		existing.LowConfidence = c.LowConfidence
		existing.UpdatedAt = now
		if err := l.store.UpdateAlert(ctx, *existing); err != nil {
			return vitals.Alert{}, fmt.Errorf("submit: merge alert: %w", err)
		}
		l.emit(Event{AlertID: existing.ID, Transition: TransitionUpdated, Alert: *existing, At: now})
		return *existing, nil
	}

	alert := vitals.Alert{
		ID:            uuid.New(),
		IncubatorID:   c.IncubatorID,
		PatientID:     c.PatientID,
		Type:          c.Type,
		Severity:      c.Severity,
		Value:         c.Value,
		Threshold:     c.Bound,
		Message:       c.Message,
		State:         vitals.StateActiva,
		LowConfidence: c.LowConfidence,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := l.store.InsertAlert(ctx, alert); err != nil {
		return vitals.Alert{}, fmt.Errorf("submit: insert alert: %w", err)
	}

	l.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("tipo_alerta", alert.Type).
		Str("severidad", string(alert.Severity)).
		Str("incubadora_id", alert.IncubatorID).
		Msg("alert opened")
	l.emit(Event{AlertID: alert.ID, Transition: TransitionCreated, Alert: alert, At: now})
	return alert, nil
}

// Acknowledge marks an activa alert as seen by a user.
func (l *Ledger) Acknowledge(ctx context.Context, id uuid.UUID, userID string) (vitals.Alert, error) {
	return l.transition(ctx, id, func(a *vitals.Alert, now time.Time) (Transition, error) {
		if a.State != vitals.StateActiva {
			return "", fmt.Errorf("%w: acknowledge from %s", ErrInvalidTransition, a.State)
		}
		a.State = vitals.StateReconocida
		a.AckBy = userID
		a.AckAt = &now
		return TransitionAcknowledged, nil
	})
}

// Resolve closes an alert. Legal from activa or reconocida; resuelta is
// terminal.
func (l *Ledger) Resolve(ctx context.Context, id uuid.UUID) (vitals.Alert, error) {
	return l.transition(ctx, id, func(a *vitals.Alert, now time.Time) (Transition, error) {
		if a.State == vitals.StateResuelta {
			return "", fmt.Errorf("%w: resolve from %s", ErrInvalidTransition, a.State)
		}
		a.State = vitals.StateResuelta
		a.ResolvedAt = &now
		return TransitionResolved, nil
	})
}

// ListActive returns activa alerts matching the filter, ordered by severity
// (critica first) then most recent first.
func (l *Ledger) ListActive(ctx context.Context, f Filter) ([]vitals.Alert, error) {
	f.States = []vitals.State{vitals.StateActiva}

	ctx, cancel := l.bound(ctx)
	defer cancel()

	alerts, err := l.store.ListAlerts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts, nil
}

// List returns alerts matching the filter with no fixed ordering contract.
func (l *Ledger) List(ctx context.Context, f Filter) ([]vitals.Alert, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()
	return l.store.ListAlerts(ctx, f)
}

func (l *Ledger) transition(ctx context.Context, id uuid.UUID, apply func(*vitals.Alert, time.Time) (Transition, error)) (vitals.Alert, error) {
	ctx, cancel := l.bound(ctx)
	defer cancel()

	alert, err := l.store.GetAlert(ctx, id)
	if err != nil {
		return vitals.Alert{}, fmt.Errorf("load alert: %w", err)
	}
	if alert == nil {
		return vitals.Alert{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	// Serialize against Submit merges for the same key, then re-read under
	// the lock so the transition sees the latest row.
	lock := l.lockFor(alert.DedupKey())
	lock.Lock()
	defer lock.Unlock()

	alert, err = l.store.GetAlert(ctx, id)
	if err != nil {
		return vitals.Alert{}, fmt.Errorf("load alert: %w", err)
	}
	if alert == nil {
		return vitals.Alert{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := time.Now().UTC()
	tr, err := apply(alert, now)
	if err != nil {
		return vitals.Alert{}, err
	}
	alert.UpdatedAt = now

	if err := l.store.UpdateAlert(ctx, *alert); err != nil {
		return vitals.Alert{}, fmt.Errorf("update alert: %w", err)
	}

	l.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("estado", string(alert.State)).
		Msg("alert transitioned")
	l.emit(Event{AlertID: alert.ID, Transition: tr, Alert: *alert, At: now})
	return *alert, nil
}

func (l *Ledger) lockFor(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.keyLocks[key] = lock
	}
	return lock
}

func (l *Ledger) emit(ev Event) {
	l.mu.Lock()
	subs := make([]func(Event), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (l *Ledger) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}
