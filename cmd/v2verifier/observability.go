package main

import (
	"os"

	metrics "github.com/twardokus/v2verifier/pkg/telemetry"
)

// setupObservability builds the process-wide logger and metrics collector,
// the way the teacher's demo wires its own default logger and collector
// before dispatching into server or client mode.
func setupObservability() (*metrics.Logger, *metrics.Collector) {
	logger := metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(metrics.LevelInfo),
		metrics.WithFormat(metrics.FormatText),
		metrics.WithFields(metrics.Fields{"app": "v2verifier"}),
	)

	collector := metrics.NewCollector(metrics.Labels{"instance": "v2verifier"})

	return logger, collector
}
