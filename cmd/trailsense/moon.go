package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrissnell/trailsense/internal/types"
)

func newMoonCmd() *cobra.Command {
	var timeStr string

	cmd := &cobra.Command{
		Use:   "moon",
		Short: "Show the moon phase and its influence on the tides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := time.Now().UTC()
			if timeStr != "" {
				var err error
				t, err = time.Parse(time.RFC3339, timeStr)
				if err != nil {
					return fmt.Errorf("error parsing time: %w", err)
				}
			}

			report := types.BuildMoonReport(t)
			return render(cmd.OutOrStdout(), report, func(w io.Writer) {
				phase := report.Phase
				fmt.Fprintf(w, "Moon Phase for %s\n", t.Format(time.RFC3339))
				fmt.Fprintf(w, "  Phase Name:   %s\n", phase.Name)
				fmt.Fprintf(w, "  Illumination: %.1f%%\n", phase.Illumination*100)
				fmt.Fprintf(w, "  Age:          %.1f days\n", phase.AgeDays)
				fmt.Fprintf(w, "  Elongation:   %.1f°\n", phase.Elongation)
				if phase.Waxing {
					fmt.Fprintf(w, "  Direction:    Waxing\n")
				} else {
					fmt.Fprintf(w, "  Direction:    Waning\n")
				}
				fmt.Fprintf(w, "  Tides:        %s\n", report.Influence)
			})
		},
	}

	cmd.Flags().StringVar(&timeStr, "time", "", "Time to calculate the phase for (RFC3339, e.g. 2024-01-15T12:00:00Z)")
	return cmd
}
