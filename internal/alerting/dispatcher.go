package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/ledger"
)

// Dispatcher ferries ledger lifecycle events to a Notifier. Delivery is
// at-least-once: failed sends are retried with backoff, and consumers
// de-duplicate on (alert id, transition). The dispatcher never drops an
// event; when the queue is full, Handle blocks the emitting transition.
type Dispatcher struct {
	notifier Notifier
	events   chan ledger.Event
	retries  int
	backoff  time.Duration
	logger   zerolog.Logger
}

// NewDispatcher constructs a Dispatcher with the given queue depth.
func NewDispatcher(notifier Notifier, buffer, retries int, backoff time.Duration, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Dispatcher{
		notifier: notifier,
		events:   make(chan ledger.Event, buffer),
		retries:  retries,
		backoff:  backoff,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Handle enqueues one lifecycle event. Safe for concurrent use; intended as
// a ledger subscriber.
func (d *Dispatcher) Handle(ev ledger.Event) {
	d.events <- ev
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.events:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev ledger.Event) {
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * d.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if err = d.notifier.Notify(ctx, ev); err == nil {
			return
		}
		d.logger.Warn().Err(err).
			Str("alert_id", ev.AlertID.String()).
			Str("transition", string(ev.Transition)).
			Int("attempt", attempt+1).
			Msg("notification delivery failed")
	}
	d.logger.Error().Err(err).
		Str("alert_id", ev.AlertID.String()).
		Str("transition", string(ev.Transition)).
		Msg("notification delivery abandoned")
}
