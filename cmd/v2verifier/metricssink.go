package main

import (
	"fmt"
	"os"
)

// MetricsSink appends one CSV row per completed run to an external file,
// mirroring the original simulator's end-of-run metrics line in its
// receive() loop.
type MetricsSink struct {
	path string
	run  string
	note string
}

// NewMetricsSink creates a MetricsSink writing to path, tagging every row
// with run and note. A zero-value path disables the sink; callers should
// check Enabled before calling WriteRun.
func NewMetricsSink(path, run, note string) *MetricsSink {
	return &MetricsSink{path: path, run: run, note: note}
}

// Enabled reports whether this sink has a destination file configured.
func (s *MetricsSink) Enabled() bool {
	return s.path != ""
}

// WriteRun appends one row: run_id,scheme_int,total_us,first_us,last_us,note.
func (s *MetricsSink) WriteRun(schemeInt int, totalUs, firstUs, lastUs int64) error {
	if !s.Enabled() {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metrics sink: open %s: %w", s.path, err)
	}
	defer f.Close()

	row := fmt.Sprintf("%s,%d,%d,%d,%d,%s\n", s.run, schemeInt, totalUs, firstUs, lastUs, s.note)
	if _, err := f.WriteString(row); err != nil {
		return fmt.Errorf("metrics sink: write %s: %w", s.path, err)
	}
	return nil
}
