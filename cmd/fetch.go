package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/evcatalyst/nys-district-dashboard/internal/fetch"
	"github.com/evcatalyst/nys-district-dashboard/internal/history"
	"github.com/evcatalyst/nys-district-dashboard/internal/sourcelog"
)

var (
	flagWorkers int
	flagForce   bool
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download district data, reusing fresh cached artifacts",
	Long: `Fetch assessment, enrollment, graduation, and budget pages for every
district in the roster, plus the statewide fiscal profiles workbook.

Artifacts from a previous run are reused while they are inside their
staleness window; pass --force to refetch everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runFetch(cmd)
		return err
	},
}

func init() {
	fetchCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent district workers (default: from config)")
	fetchCmd.Flags().BoolVar(&flagForce, "force", false, "ignore cached artifacts and refetch everything")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command) (fetch.Summary, error) {
	paths := workPaths()
	logger := newLogger()

	cfg, err := loadSettings(paths)
	if err != nil {
		return fetch.Summary{}, err
	}
	roster, err := loadRoster(paths)
	if err != nil {
		return fetch.Summary{}, err
	}

	prior := sourcelog.LoadPrevious(paths.SourcesJSON(), logger)
	logger.Info("prior sources loaded", "urls", prior.Len())

	client := fetch.NewClient(fetch.DefaultRetryPolicy())
	fetcher := fetch.New(cfg, client, paths.CacheDir(), prior, logger)
	fetcher.SetForce(flagForce)

	workers := flagWorkers
	if workers <= 0 {
		workers = cfg.FetchWorkers
	}

	startedAt := time.Now()
	summary := fetcher.Run(cmd.Context(), roster, workers)

	if err := fetcher.Log().Persist(paths.SourcesJSON()); err != nil {
		return summary, fmt.Errorf("persisting sources metadata: %w", err)
	}

	recordRun("fetch", startedAt, summary, logger)
	printSummary(summary)
	return summary, nil
}

// recordRun is best effort: a broken history DB should never fail a
// fetch that already persisted its source log.
func recordRun(command string, startedAt time.Time, s fetch.Summary, logger *slog.Logger) {
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		logger.Warn("could not open run history", "error", err)
		return
	}
	defer store.Close()

	err = store.RecordRun(history.Run{
		Command:          command,
		StartedAt:        startedAt,
		Duration:         s.Duration,
		Districts:        s.Districts,
		DistrictsFailed:  s.DistrictsFailed,
		SourcesTotal:     s.SourcesTotal,
		SourcesSucceeded: s.SourcesSucceeded,
		SourcesFailed:    s.SourcesFailed,
		SourcesReused:    s.SourcesReused,
	})
	if err != nil {
		logger.Warn("could not record run", "error", err)
	}
}

func printSummary(s fetch.Summary) {
	fmt.Println(headingStyle.Render("Fetch complete"))
	fmt.Printf("  Districts:  %d", s.Districts)
	if s.DistrictsFailed > 0 {
		fmt.Printf("  %s", warnStyle.Render(fmt.Sprintf("(%d failed)", s.DistrictsFailed)))
	}
	fmt.Println()
	fmt.Printf("  Sources:    %d total, %s, %s, %s\n",
		s.SourcesTotal,
		okStyle.Render(fmt.Sprintf("%d succeeded", s.SourcesSucceeded)),
		dimStyle.Render(fmt.Sprintf("%d reused", s.SourcesReused)),
		warnStyle.Render(fmt.Sprintf("%d failed", s.SourcesFailed)),
	)
	fmt.Printf("  Duration:   %s\n", s.Duration.Round(time.Millisecond))
}
