package main

import "github.com/evcatalyst/nys-district-dashboard/cmd"

// Overridden at release time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
