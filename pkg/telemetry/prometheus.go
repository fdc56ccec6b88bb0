package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports metrics in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given collector.
// The namespace is prepended to all metric names (e.g., "v2verifier").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	// --- Reassembly Metrics ---
	e.writeHelp(w, "reassemblies_active", "Number of SPDU reassemblies currently in progress")
	e.writeType(w, "reassemblies_active", "gauge")
	e.writeMetric(w, "reassemblies_active", labels, float64(snap.ReassembliesActive))

	e.writeHelp(w, "reassemblies_started_total", "Total number of reassembly entries created")
	e.writeType(w, "reassemblies_started_total", "counter")
	e.writeMetric(w, "reassemblies_started_total", labels, float64(snap.ReassembliesStarted))

	e.writeHelp(w, "reassemblies_evicted_total", "Total number of reassembly entries evicted before completion")
	e.writeType(w, "reassemblies_evicted_total", "counter")
	e.writeMetric(w, "reassemblies_evicted_total", labels, float64(snap.ReassembliesEvicted))

	// --- Traffic Metrics ---
	e.writeHelp(w, "fragment_bytes_sent_total", "Total fragment bytes sent")
	e.writeType(w, "fragment_bytes_sent_total", "counter")
	e.writeMetric(w, "fragment_bytes_sent_total", labels, float64(snap.FragmentBytesSent))

	e.writeHelp(w, "fragment_bytes_received_total", "Total fragment bytes received")
	e.writeType(w, "fragment_bytes_received_total", "counter")
	e.writeMetric(w, "fragment_bytes_received_total", labels, float64(snap.FragmentBytesReceived))

	e.writeHelp(w, "fragments_sent_total", "Total fragments sent")
	e.writeType(w, "fragments_sent_total", "counter")
	e.writeMetric(w, "fragments_sent_total", labels, float64(snap.FragmentsSent))

	e.writeHelp(w, "fragments_received_total", "Total fragments received")
	e.writeType(w, "fragments_received_total", "counter")
	e.writeMetric(w, "fragments_received_total", labels, float64(snap.FragmentsReceived))

	// --- Verification Metrics ---
	e.writeHelp(w, "cert_failures_total", "Total certificate signature verification failures")
	e.writeType(w, "cert_failures_total", "counter")
	e.writeMetric(w, "cert_failures_total", labels, float64(snap.CertFailures))

	e.writeHelp(w, "sig_failures_total", "Total message signature verification failures")
	e.writeType(w, "sig_failures_total", "counter")
	e.writeMetric(w, "sig_failures_total", labels, float64(snap.SigFailures))

	e.writeHelp(w, "stale_rejections_total", "Total SPDUs rejected by the recency check")
	e.writeType(w, "stale_rejections_total", "counter")
	e.writeMetric(w, "stale_rejections_total", labels, float64(snap.StaleRejections))

	e.writeHelp(w, "spdus_valid_total", "Total SPDUs that passed all verification checks")
	e.writeType(w, "spdus_valid_total", "counter")
	e.writeMetric(w, "spdus_valid_total", labels, float64(snap.SPDUsValid))

	e.writeHelp(w, "spdus_invalid_total", "Total SPDUs that failed at least one verification check")
	e.writeType(w, "spdus_invalid_total", "counter")
	e.writeMetric(w, "spdus_invalid_total", labels, float64(snap.SPDUsInvalid))

	// --- Error Metrics ---
	e.writeHelp(w, "sign_errors_total", "Total SPDU signing errors")
	e.writeType(w, "sign_errors_total", "counter")
	e.writeMetric(w, "sign_errors_total", labels, float64(snap.SignErrors))

	e.writeHelp(w, "verify_errors_total", "Total SPDU verification errors")
	e.writeType(w, "verify_errors_total", "counter")
	e.writeMetric(w, "verify_errors_total", labels, float64(snap.VerifyErrors))

	e.writeHelp(w, "transport_errors_total", "Total transport errors")
	e.writeType(w, "transport_errors_total", "counter")
	e.writeMetric(w, "transport_errors_total", labels, float64(snap.TransportErrors))

	// --- Uptime ---
	e.writeHelp(w, "uptime_seconds", "Time since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())

	// --- Histograms ---
	e.writeHistogram(w, "reassembly_duration_milliseconds", "SPDU reassembly duration in milliseconds", labels, snap.ReassemblyLatency)
	e.writeHistogram(w, "sign_duration_microseconds", "SPDU signing duration in microseconds", labels, snap.SignLatency)
	e.writeHistogram(w, "verify_duration_microseconds", "SPDU verification duration in microseconds", labels, snap.VerifyLatency)
}

// writeHelp writes a HELP line.
func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

// writeType writes a TYPE line.
func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

// writeMetric writes a single metric line.
func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

// writeHistogram writes a histogram in Prometheus format.
func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHelp(w, name, help)
	e.writeType(w, name, "histogram")

	fullName := e.namespace + "_" + name

	// Write bucket counts
	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	// Write sum and count
	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

// formatLabels converts Labels to Prometheus label format.
func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		// Escape label values
		v := escapePromValue(labels[k])
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, v))
	}

	return strings.Join(parts, ",")
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// --- Convenience Functions ---

// ServePrometheus starts an HTTP server serving Prometheus metrics.
// This is a convenience function for simple use cases.
func ServePrometheus(addr string, c *Collector, namespace string) error {
	exp := NewPrometheusExporter(c, namespace)
	http.Handle("/metrics", exp.Handler())
	return http.ListenAndServe(addr, nil)
}
