package probe

import (
	"fmt"
	"os"

	"github.com/okian/tailor/pkg/logger"
)

// SetupLogging initializes the logger, also writing to logFile when set.
func SetupLogging(logFile string, verbose bool) error {
	var opts []logger.Option
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Tailor Probe
============

Drives a running tailor server through calibrate, measure, save and
history, and checks each answer.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -image string
        Image to upload for each frame (default: use the server camera)
  -user string
        History owner (default "probe")
  -sessions int
        Number of concurrent sessions (default 1)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/probe -image testdata/person.jpg
  go run ./cmd/probe -sessions 8 -url http://localhost:8080
`)
}
