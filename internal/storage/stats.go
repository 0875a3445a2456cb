package storage

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ParameterStats summarises one parameter's values over a reading window.
// Decimal arithmetic keeps the aggregates exact for display and reporting.
type ParameterStats struct {
	Parameter string
	Count     int
	Min       decimal.Decimal
	Max       decimal.Decimal
	Mean      decimal.Decimal
	Median    decimal.Decimal
}

// ComputeStats aggregates per-parameter statistics across stored readings.
// Non-numeric values (persisted nulls round-tripped as NaN) are skipped.
func ComputeStats(readings []StoredReading) []ParameterStats {
	grouped := make(map[string][]float64)
	for _, sr := range readings {
		for param, value := range sr.Reading.Values {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			grouped[param] = append(grouped[param], value)
		}
	}

	stats := make([]ParameterStats, 0, len(grouped))
	for param, values := range grouped {
		sort.Float64s(values)

		sum := decimal.Zero
		for _, v := range values {
			sum = sum.Add(decimal.NewFromFloat(v))
		}
		count := decimal.NewFromInt(int64(len(values)))

		stats = append(stats, ParameterStats{
			Parameter: param,
			Count:     len(values),
			Min:       decimal.NewFromFloat(values[0]),
			Max:       decimal.NewFromFloat(values[len(values)-1]),
			Mean:      sum.DivRound(count, 4),
			Median:    median(values),
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Parameter < stats[j].Parameter })
	return stats
}

func median(sorted []float64) decimal.Decimal {
	n := len(sorted)
	if n%2 == 1 {
		return decimal.NewFromFloat(sorted[n/2])
	}
	lo := decimal.NewFromFloat(sorted[n/2-1])
	hi := decimal.NewFromFloat(sorted[n/2])
	return lo.Add(hi).DivRound(decimal.NewFromInt(2), 4)
}
