package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"incubator-alerts/internal/app"
)

var (
	statsIncubator string
	statsPatient   string
	statsFrom      string
	statsTo        string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise stored readings per vital-sign parameter",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StatsOptions{
			IncubatorID: statsIncubator,
			PatientID:   statsPatient,
		}

		var err error
		if opts.From, err = parseTimeFlag("from", statsFrom); err != nil {
			return err
		}
		if opts.To, err = parseTimeFlag("to", statsTo); err != nil {
			return err
		}

		return getApp().Stats(cmd.Context(), opts)
	},
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &t, nil
}

func init() {
	statsCmd.Flags().StringVar(&statsIncubator, "incubator", "", "Filter by incubator id")
	statsCmd.Flags().StringVar(&statsPatient, "patient", "", "Filter by patient id")
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "Start timestamp (RFC3339, inclusive; defaults to 24h ago)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "End timestamp (RFC3339, exclusive; defaults to now)")
}
