package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/vitals"
)

func testEvent() ledger.Event {
	alert := vitals.Alert{
		ID:          uuid.New(),
		IncubatorID: "INC-001",
		PatientID:   "PAC-007",
		Type:        "temperatura_corporal_alta",
		Severity:    vitals.SeverityMedia,
		Value:       38.2,
		Threshold:   37.5,
		Message:     "ALERTA media: TEMPERATURA_CORPORAL ALTO - Valor: 38.20, Rango normal: 36-37.5, Desviación: 0.70",
		State:       vitals.StateActiva,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	return ledger.Event{AlertID: alert.ID, Transition: ledger.TransitionCreated, Alert: alert, At: time.Now().UTC()}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	ev := testEvent()

	if err := notifier.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	text := received["text"]
	if !strings.Contains(text, "Incubadora INC-001") {
		t.Fatalf("text should name the incubator: %q", text)
	}
	if !strings.Contains(text, ev.Alert.Message) {
		t.Fatalf("text should carry the alert message: %q", text)
	}
	if !strings.Contains(text, "Paciente: PAC-007") {
		t.Fatalf("text should name the patient: %q", text)
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), testEvent()); err == nil {
		t.Fatal("ok=false should be reported as an error")
	}
}

type countingNotifier struct {
	calls    atomic.Int32
	failures int32
	done     chan struct{}
}

func (n *countingNotifier) Notify(_ context.Context, _ ledger.Event) error {
	call := n.calls.Add(1)
	if call <= n.failures {
		return context.DeadlineExceeded
	}
	close(n.done)
	return nil
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	notifier := &countingNotifier{failures: 2, done: make(chan struct{})}
	disp := NewDispatcher(notifier, 4, 3, time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go disp.Run(ctx)

	disp.Handle(testEvent())

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was never delivered")
	}

	if got := notifier.calls.Load(); got != 3 {
		t.Fatalf("expected 3 delivery attempts, got %d", got)
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
