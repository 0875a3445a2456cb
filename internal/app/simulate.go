package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"incubator-alerts/internal/ledger"
	"incubator-alerts/internal/storage"
	"incubator-alerts/internal/thresholds"
	"incubator-alerts/internal/vitals"
)

// SimulateReading pushes one synthetic reading through the evaluation
// pipeline without persisting anything. Patient thresholds are taken from
// the database when configured; alerts land in a throwaway in-memory
// ledger. With a notification channel configured the resulting
// transitions are delivered, so the command doubles as an end-to-end
// alerting check.
func (a *App) SimulateReading(ctx context.Context, reading vitals.Reading) error {
	mem := storage.NewMemory()

	var thStore thresholds.Store = mem
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		thStore = store
	}
	if closeStore != nil {
		defer closeStore()
	}

	pipe := a.newPipeline(thStore, mem, mem)

	if a.Config.Alerting.Enabled {
		if notifier := a.newNotifier(); notifier != nil {
			pipe.ledger.Subscribe(func(ev ledger.Event) {
				if err := notifier.Notify(ctx, ev); err != nil {
					a.Logger.Error().Err(err).Msg("simulated notification failed")
				}
			})
		}
	}

	alerts, err := pipe.monitor.Process(ctx, reading)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts generated")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Severity\tType\tValue\tMessage")
	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			alert.Severity,
			alert.Type,
			decimal.NewFromFloat(alert.Value).StringFixed(2),
			sanitizeInline(alert.Message),
		)
	}

	writer.Flush()
	return nil
}
