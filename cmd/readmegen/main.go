package main

import (
	"github.com/readmegen/readmegen/internal/cmd"
	"github.com/readmegen/readmegen/internal/observability"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2025-10-28"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.Exit(observability.CLILogger, err)
	}
}
