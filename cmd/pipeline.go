package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcatalyst/nys-district-dashboard/internal/chartspec"
	"github.com/evcatalyst/nys-district-dashboard/internal/config"
	"github.com/evcatalyst/nys-district-dashboard/internal/normalize"
	"github.com/evcatalyst/nys-district-dashboard/internal/site"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Parse cached artifacts into CSV and JSON tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNormalize()
	},
}

var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Build per-district and per-BOCES chart specs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpecs()
	},
}

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Assemble the static site under out/",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSite()
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run fetch, normalize, specs, and site in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := runFetch(cmd); err != nil {
			return err
		}
		if err := runNormalize(); err != nil {
			return err
		}
		if err := runSpecs(); err != nil {
			return err
		}
		return runSite()
	},
}

func init() {
	buildCmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent district workers (default: from config)")
	buildCmd.Flags().BoolVar(&flagForce, "force", false, "ignore cached artifacts and refetch everything")

	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(specsCmd)
	rootCmd.AddCommand(siteCmd)
	rootCmd.AddCommand(buildCmd)
}

func runNormalize() error {
	paths := workPaths()
	return normalize.New(paths, newLogger()).Run()
}

func runSpecs() error {
	paths := workPaths()
	roster, err := loadRoster(paths)
	if err != nil {
		return err
	}
	return chartspec.NewBuilder(paths, roster, newLogger()).Run()
}

func runSite() error {
	paths := workPaths()
	roster, err := loadRoster(paths)
	if err != nil {
		return err
	}
	return site.NewBuilder(paths, roster, newLogger()).Run()
}

func loadRoster(paths config.Paths) ([]config.District, error) {
	roster, err := config.LoadDistricts(paths.DistrictsJSON())
	if err != nil {
		return nil, fmt.Errorf("loading district roster: %w", err)
	}
	return roster, nil
}
