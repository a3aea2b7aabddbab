package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig  string
	flagWorkdir string
)

var rootCmd = &cobra.Command{
	Use:   "districtdash",
	Short: "NYS school district data pipeline",
	Long: `districtdash fetches public NYSED data for a roster of school districts,
normalizes it into tabular form, and builds the static dashboard site.

Run the stages individually (fetch, normalize, specs, site) or all at
once with build.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to settings file (default: <workdir>/config/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagWorkdir, "workdir", ".", "pipeline working directory")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("districtdash %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func workPaths() config.Paths {
	return config.Paths{Workdir: flagWorkdir}
}

// loadSettings resolves the settings file, preferring --config and
// falling back to the conventional path under the working directory.
func loadSettings(paths config.Paths) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = paths.SettingsYAML()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
