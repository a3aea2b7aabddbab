package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcatalyst/nys-district-dashboard/internal/history"
)

var flagStatsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recent pipeline run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(history.DefaultPath())
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer store.Close()

		runs, err := store.RecentRuns(flagStatsLimit)
		if err != nil {
			return fmt.Errorf("reading run history: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Println(headingStyle.Render("Recent runs"))
		for _, r := range runs {
			line := fmt.Sprintf("  %s  %-10s %d districts, %d sources (%s, %s, %s) in %s",
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Command,
				r.Districts,
				r.SourcesTotal,
				okStyle.Render(fmt.Sprintf("%d ok", r.SourcesSucceeded)),
				dimStyle.Render(fmt.Sprintf("%d reused", r.SourcesReused)),
				warnStyle.Render(fmt.Sprintf("%d failed", r.SourcesFailed)),
				r.Duration.Round(time.Millisecond),
			)
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&flagStatsLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statsCmd)
}
