package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"incubator-alerts/internal/app"
)

var (
	alertsIncubator string
	alertsPatient   string
	alertsAll       bool
	alertsLimit     int
	ackBy           string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and update the alert ledger",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display alerts, active ones by default",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.AlertsOptions{
			IncubatorID: alertsIncubator,
			PatientID:   alertsPatient,
			All:         alertsAll,
			Limit:       alertsLimit,
		}

		return getApp().ShowAlerts(cmd.Context(), opts)
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an active alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ackBy == "" {
			return fmt.Errorf("--by must identify the acknowledging user")
		}
		return getApp().AcknowledgeAlert(cmd.Context(), args[0], ackBy)
	},
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ResolveAlert(cmd.Context(), args[0])
	},
}

func init() {
	alertsListCmd.Flags().StringVar(&alertsIncubator, "incubator", "", "Filter by incubator id")
	alertsListCmd.Flags().StringVar(&alertsPatient, "patient", "", "Filter by patient id")
	alertsListCmd.Flags().BoolVar(&alertsAll, "all", false, "Include acknowledged and resolved alerts")
	alertsListCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum number of alerts to display")

	alertsAckCmd.Flags().StringVar(&ackBy, "by", "", "User id recorded on the acknowledgement")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAckCmd)
	alertsCmd.AddCommand(alertsResolveCmd)
}
