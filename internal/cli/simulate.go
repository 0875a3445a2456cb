package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"incubator-alerts/internal/vitals"
)

var (
	simulateIncubator string
	simulatePatient   string
	simulateValues    []string
	simulateQuality   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-reading",
	Short: "Run one synthetic reading through the evaluation pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateIncubator == "" {
			return fmt.Errorf("--incubator must be provided")
		}
		if len(simulateValues) == 0 {
			return fmt.Errorf("at least one --value parameter=value pair must be provided")
		}

		values, err := parseValuePairs(simulateValues)
		if err != nil {
			return err
		}

		reading := vitals.Reading{
			IncubatorID: simulateIncubator,
			PatientID:   simulatePatient,
			Timestamp:   time.Now().UTC(),
			Values:      values,
			Quality:     simulateQuality,
		}

		return getApp().SimulateReading(cmd.Context(), reading)
	},
}

// parseValuePairs turns parameter=value pairs into a value map. A
// non-numeric value becomes NaN, mimicking a faulty probe so the
// data-quality path can be exercised from the CLI.
func parseValuePairs(pairs []string) (map[string]float64, error) {
	values := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		param, raw, found := strings.Cut(pair, "=")
		if !found || param == "" {
			return nil, fmt.Errorf("invalid --value %q; expected parameter=value", pair)
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			value = math.NaN()
		}
		values[param] = value
	}
	return values, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simulateIncubator, "incubator", "", "Incubator id")
	simulateCmd.Flags().StringVar(&simulatePatient, "patient", "", "Patient id")
	simulateCmd.Flags().StringArrayVar(&simulateValues, "value", nil, "Vital-sign value as parameter=value; repeatable")
	simulateCmd.Flags().Float64Var(&simulateQuality, "quality", 1, "Data quality score in [0,1]")
}
