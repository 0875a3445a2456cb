package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"incubator-alerts/internal/thresholds"
)

var (
	thresholdPatient   string
	thresholdParameter string
	thresholdMin       float64
	thresholdMax       float64
	thresholdCritMin   float64
	thresholdCritMax   float64
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Manage patient-specific vital-sign thresholds",
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the active threshold for a parameter",
	RunE: func(cmd *cobra.Command, args []string) error {
		if thresholdPatient == "" || thresholdParameter == "" {
			return fmt.Errorf("--patient and --parameter must be provided")
		}

		t := thresholds.Threshold{
			PatientID: thresholdPatient,
			Parameter: thresholdParameter,
		}

		// Flags left unset mean the bound is open; zero is a valid bound.
		flags := cmd.Flags()
		if flags.Changed("min") {
			t.Min = thresholds.Float(thresholdMin)
		}
		if flags.Changed("max") {
			t.Max = thresholds.Float(thresholdMax)
		}
		if flags.Changed("critical-min") {
			t.CriticalMin = thresholds.Float(thresholdCritMin)
		}
		if flags.Changed("critical-max") {
			t.CriticalMax = thresholds.Float(thresholdCritMax)
		}

		if t.Min == nil && t.Max == nil && t.CriticalMin == nil && t.CriticalMax == nil {
			return fmt.Errorf("at least one bound must be provided")
		}

		return getApp().SetThreshold(cmd.Context(), t)
	},
}

var thresholdsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deactivate a patient threshold, restoring default ranges",
	RunE: func(cmd *cobra.Command, args []string) error {
		if thresholdPatient == "" || thresholdParameter == "" {
			return fmt.Errorf("--patient and --parameter must be provided")
		}
		return getApp().ClearThreshold(cmd.Context(), thresholdPatient, thresholdParameter)
	},
}

var thresholdsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a patient's active thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if thresholdPatient == "" {
			return fmt.Errorf("--patient must be provided")
		}
		return getApp().ListThresholds(cmd.Context(), thresholdPatient)
	},
}

func init() {
	thresholdsCmd.PersistentFlags().StringVar(&thresholdPatient, "patient", "", "Patient id")
	thresholdsCmd.PersistentFlags().StringVar(&thresholdParameter, "parameter", "", "Vital-sign parameter")

	thresholdsSetCmd.Flags().Float64Var(&thresholdMin, "min", 0, "Lower normal bound")
	thresholdsSetCmd.Flags().Float64Var(&thresholdMax, "max", 0, "Upper normal bound")
	thresholdsSetCmd.Flags().Float64Var(&thresholdCritMin, "critical-min", 0, "Lower critical bound")
	thresholdsSetCmd.Flags().Float64Var(&thresholdCritMax, "critical-max", 0, "Upper critical bound")

	thresholdsCmd.AddCommand(thresholdsSetCmd)
	thresholdsCmd.AddCommand(thresholdsClearCmd)
	thresholdsCmd.AddCommand(thresholdsListCmd)
}
