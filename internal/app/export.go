package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"incubator-alerts/internal/storage"
)

// trendPoint is one sampled value of a single vital-sign parameter.
type trendPoint struct {
	At          time.Time
	IncubatorID string
	PatientID   string
	Value       float64
}

// Export renders the trend of one parameter as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Parameter == "" {
		return errors.New("--parameter is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
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

	points := collectTrend(readings, opts.Parameter)
	if len(points) == 0 {
		a.Logger.Info().Str("parameter", opts.Parameter).Msg("no values found for export window")
		return nil
	}

	downsampled := downsampleTrend(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting trend")

	if opts.CSVPath != "" {
		if err := writeTrendCSV(opts.CSVPath, opts.Parameter, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTrendPNG(opts.PNGPath, opts.Parameter, downsampled); err != nil {
			return err
		}
	}

	return nil
}

// collectTrend extracts one parameter from stored readings, skipping
// sentinel NaN values that stand in for unparseable sensor output.
func collectTrend(readings []storage.StoredReading, parameter string) []trendPoint {
	points := make([]trendPoint, 0, len(readings))
	for _, stored := range readings {
		value, ok := stored.Reading.Values[parameter]
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		points = append(points, trendPoint{
			At:          stored.Reading.Timestamp,
			IncubatorID: stored.Reading.IncubatorID,
			PatientID:   stored.Reading.PatientID,
			Value:       value,
		})
	}
	return points
}

func downsampleTrend(points []trendPoint, max int) []trendPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]trendPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeTrendCSV(path, parameter string, points []trendPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"ts", "incubadora_id", "paciente_id", "parametro", "valor"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.At.UTC().Format(time.RFC3339),
			point.IncubatorID,
			point.PatientID,
			parameter,
			strconv.FormatFloat(point.Value, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTrendPNG(path, parameter string, points []trendPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, point := range points {
		x[i] = point.At
		y[i] = point.Value
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           parameter,
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    parameter,
				XValues: x,
				YValues: y,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
