package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"incubator-alerts/internal/thresholds"
)

// SetThreshold creates or replaces the active threshold for one patient
// parameter.
func (a *App) SetThreshold(ctx context.Context, t thresholds.Threshold) error {
	svc, closeStore, err := a.thresholdService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	saved, err := svc.Upsert(ctx, t)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "threshold %s set for patient %s parameter %s\n", saved.ID, saved.PatientID, saved.Parameter)
	return nil
}

// ClearThreshold deactivates a patient threshold, returning the parameter
// to default acceptable ranges.
func (a *App) ClearThreshold(ctx context.Context, patientID, parameter string) error {
	svc, closeStore, err := a.thresholdService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.Deactivate(ctx, patientID, parameter); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "threshold cleared for patient %s parameter %s\n", patientID, parameter)
	return nil
}

// ListThresholds prints the active thresholds for a patient.
func (a *App) ListThresholds(ctx context.Context, patientID string) error {
	svc, closeStore, err := a.thresholdService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	items, err := svc.ListActive(ctx, patientID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stdout, "no active thresholds; default acceptable ranges apply")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Parameter\tCritMin\tMin\tMax\tCritMax\tUpdated (UTC)")
	for _, t := range items {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Parameter,
			formatBound(t.CriticalMin),
			formatBound(t.Min),
			formatBound(t.Max),
			formatBound(t.CriticalMax),
			t.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		)
	}

	writer.Flush()
	return nil
}

func (a *App) thresholdService(ctx context.Context) (*thresholds.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; cannot manage thresholds")
	}
	if closeStore == nil {
		closeStore = func() {}
	}

	return thresholds.NewService(store, a.Config.Database.Timeout, a.Logger), closeStore, nil
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
