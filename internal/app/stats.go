package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"incubator-alerts/internal/storage"
)

// Stats aggregates stored readings over a window and prints per-parameter
// count, min, max, mean, and median.
func (a *App) Stats(ctx context.Context, opts StatsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot compute statistics")
	}
	if closeStore != nil {
		defer closeStore()
	}

	from, to, err := resolveWindow(opts.From, opts.To, 24*time.Hour)
	if err != nil {
		return err
	}

	readings, err := store.ListReadings(ctx, storage.ReadingFilter{
		IncubatorID: opts.IncubatorID,
		PatientID:   opts.PatientID,
		From:        from,
		To:          to,
	})
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		fmt.Fprintln(os.Stdout, "no readings found")
		return nil
	}

	stats := storage.ComputeStats(readings)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Parameter\tCount\tMin\tMax\tMean\tMedian")
	for _, s := range stats {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%s\t%s\t%s\n",
			s.Parameter,
			s.Count,
			s.Min.StringFixed(2),
			s.Max.StringFixed(2),
			s.Mean.StringFixed(2),
			s.Median.StringFixed(2),
		)
	}

	writer.Flush()
	return nil
}

func resolveWindow(from, to *time.Time, span time.Duration) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.Add(-span)
	if from != nil {
		start = from.UTC()
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return start, end, nil
}
