package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/vitals"
)

// ShowAlerts prints alerts from the ledger, active ones by default.
func (a *App) ShowAlerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	led := ledger.New(store, a.Config.Database.Timeout, a.Logger)

	filter := ledger.Filter{
		IncubatorID: opts.IncubatorID,
		PatientID:   opts.PatientID,
		Limit:       opts.Limit,
	}

	var alerts []vitals.Alert
	if opts.All {
		alerts, err = led.List(ctx, filter)
	} else {
		alerts, err = led.ListActive(ctx, filter)
	}
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Created (UTC)\tSeverity\tState\tIncubator\tPatient\tType\tValue\tMessage")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.Severity,
			alert.State,
			alert.IncubatorID,
			alert.PatientID,
			alert.Type,
			decimal.NewFromFloat(alert.Value).StringFixed(2),
			sanitizeInline(alert.Message),
		)
	}

	writer.Flush()
	return nil
}

// AcknowledgeAlert marks an active alert as seen by a clinician.
func (a *App) AcknowledgeAlert(ctx context.Context, rawID, userID string) error {
	return a.withLedger(ctx, rawID, func(led *ledger.Ledger, id uuid.UUID) (vitals.Alert, error) {
		return led.Acknowledge(ctx, id, userID)
	})
}

// ResolveAlert closes an alert.
func (a *App) ResolveAlert(ctx context.Context, rawID string) error {
	return a.withLedger(ctx, rawID, func(led *ledger.Ledger, id uuid.UUID) (vitals.Alert, error) {
		return led.Resolve(ctx, id)
	})
}

func (a *App) withLedger(ctx context.Context, rawID string, fn func(*ledger.Ledger, uuid.UUID) (vitals.Alert, error)) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid alert id %q: %w", rawID, err)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot update alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	led := ledger.New(store, a.Config.Database.Timeout, a.Logger)
	alert, err := fn(led, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "alert %s is now %s\n", alert.ID, alert.State)
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
