package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"incubator-alerts/internal/app"
)

var (
	replayIncubator string
	replayPatient   string
	replayFrom      string
	replayTo        string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-evaluate stored readings against current thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayFrom == "" || replayTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}

		opts := app.ReplayOptions{
			IncubatorID: replayIncubator,
			PatientID:   replayPatient,
			From:        from,
			To:          to,
		}

		return getApp().Replay(cmd.Context(), opts)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayIncubator, "incubator", "", "Filter by incubator id")
	replayCmd.Flags().StringVar(&replayPatient, "patient", "", "Filter by patient id")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End timestamp (RFC3339, exclusive)")
}
