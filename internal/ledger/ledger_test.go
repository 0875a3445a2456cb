package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/storage"
	"incubator-alerts/internal/vitals"
)

func newTestLedger() *ledger.Ledger {
	return ledger.New(storage.NewMemory(), 0, zerolog.Nop())
}

func testCandidate(value float64) vitals.Candidate {
	return vitals.Candidate{
		IncubatorID: "INC-001",
		PatientID:   "PAC-007",
		Parameter:   vitals.ParamTemperaturaCorporal,
		Type:        "temperatura_corporal_alta",
		Direction:   vitals.DirectionAlto,
		Severity:    vitals.SeverityMedia,
		Value:       value,
		Bound:       37.5,
		Deviation:   value - 37.5,
		Message:     "ALERTA media: TEMPERATURA_CORPORAL ALTO",
		Timestamp:   time.Now().UTC(),
	}
}

func TestSubmitMergesWhileActive(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	first, err := led.Submit(ctx, testCandidate(38.2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	c := testCandidate(38.9)
	c.Severity = vitals.SeverityAlta
	second, err := led.Submit(ctx, c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if second.ID != first.ID {
		t.Fatal("repeated submission for the same key should merge, not open a new alert")
	}
	if second.Value != 38.9 {
		t.Fatalf("merge should refresh the value, got %v", second.Value)
	}
	if second.Severity != vitals.SeverityAlta {
		t.Fatalf("merge should refresh the severity, got %s", second.Severity)
	}

	active, err := led.ListActive(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly 1 active alert, got %d", len(active))
	}
}

func TestConcurrentSubmitsProduceOneAlert(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := led.Submit(ctx, testCandidate(38.2)); err != nil {
				t.Errorf("Submit: %v", err)
			}
		}()
	}
	wg.Wait()

	active, err := led.ListActive(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly 1 active alert, got %d", len(active))
	}
}

func TestLifecycleTransitions(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	alert, err := led.Submit(ctx, testCandidate(38.2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	acked, err := led.Acknowledge(ctx, alert.ID, "enfermera-1")
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if acked.State != vitals.StateReconocida || acked.AckBy != "enfermera-1" || acked.AckAt == nil {
		t.Fatalf("unexpected acknowledged alert: %+v", acked)
	}

	if _, err := led.Acknowledge(ctx, alert.ID, "enfermera-2"); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("double acknowledge should fail, got %v", err)
	}

	resolved, err := led.Resolve(ctx, alert.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.State != vitals.StateResuelta || resolved.ResolvedAt == nil {
		t.Fatalf("unexpected resolved alert: %+v", resolved)
	}

	if _, err := led.Resolve(ctx, alert.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("resuelta is terminal, got %v", err)
	}
	if _, err := led.Acknowledge(ctx, alert.ID, "x"); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Fatalf("acknowledge after resolve should fail, got %v", err)
	}
}

func TestResolveDirectlyFromActiva(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	alert, err := led.Submit(ctx, testCandidate(38.2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := led.Resolve(ctx, alert.ID); err != nil {
		t.Fatalf("resolve straight from activa should succeed: %v", err)
	}
}

func TestSubmitAfterResolveOpensNewAlert(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	first, err := led.Submit(ctx, testCandidate(38.2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := led.Resolve(ctx, first.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	second, err := led.Submit(ctx, testCandidate(38.4))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("a resolved alert must not absorb new submissions")
	}
	if second.State != vitals.StateActiva {
		t.Fatalf("new alert should open activa, got %s", second.State)
	}
}

func TestTransitionUnknownAlert(t *testing.T) {
	led := newTestLedger()
	if _, err := led.Acknowledge(context.Background(), uuid.New(), "x"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActiveOrdersBySeverityThenRecency(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	mk := func(alertType string, sev vitals.Severity) {
		c := testCandidate(38.2)
		c.Type = alertType
		c.Severity = sev
		if _, err := led.Submit(ctx, c); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	mk("temperatura_corporal_alta", vitals.SeverityMedia)
	mk("frecuencia_cardiaca_baja", vitals.SeverityCritica)
	mk("humedad_incubadora_baja", vitals.SeverityBaja)

	active, err := led.ListActive(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active alerts, got %d", len(active))
	}
	if active[0].Severity != vitals.SeverityCritica {
		t.Fatalf("critica should sort first, got %s", active[0].Severity)
	}
	if active[2].Severity != vitals.SeverityBaja {
		t.Fatalf("baja should sort last, got %s", active[2].Severity)
	}
}

func TestSubscribersSeeLifecycleEvents(t *testing.T) {
	led := newTestLedger()
	ctx := context.Background()

	var mu sync.Mutex
	var transitions []ledger.Transition
	led.Subscribe(func(ev ledger.Event) {
		mu.Lock()
		transitions = append(transitions, ev.Transition)
		mu.Unlock()
	})

	alert, err := led.Submit(ctx, testCandidate(38.2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := led.Submit(ctx, testCandidate(38.4)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := led.Acknowledge(ctx, alert.ID, "enfermera-1"); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if _, err := led.Resolve(ctx, alert.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []ledger.Transition{
		ledger.TransitionCreated,
		ledger.TransitionUpdated,
		ledger.TransitionAcknowledged,
		ledger.TransitionResolved,
	}
	if len(transitions) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(transitions))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}
