// Package metrics provides observability primitives for the v2verifier simulator.
//
// # Overview
//
// The metrics package offers a complete observability solution including:
//   - Metrics collection (counters, gauges, histograms)
//   - Prometheus-compatible metrics export
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//   - Health check endpoints
//
// # Quick Start
//
// Basic usage with global collector:
//
//	import "github.com/twardokus/v2verifier/pkg/telemetry"
//
//	// Record metrics
//	metrics.Global().ReassemblyStarted()
//	metrics.Global().RecordSignLatency(150 * time.Microsecond)
//	metrics.Global().RecordFragmentSent(128)
//
//	// Start Prometheus server
//	go metrics.ServePrometheus(":9090", metrics.Global(), "v2verifier")
//
// # Metrics Collection
//
// The Collector type aggregates metrics from SPDU signing, transport, and
// reassembly:
//
//	collector := metrics.NewCollector(metrics.Labels{
//		"instance": "receiver-1",
//		"region":   "us-west-2",
//	})
//
//	// Reassembly metrics
//	collector.ReassemblyStarted()
//	collector.ReassemblyCompleted(d)
//
//	// Traffic metrics
//	collector.RecordFragmentSent(n)
//	collector.RecordFragmentReceived(n)
//
//	// Verification metrics
//	collector.RecordSPDUValid()
//	collector.RecordCertFailure()
//	collector.RecordStaleRejection()
//
//	// Get snapshot
//	snap := collector.Snapshot()
//
// # Prometheus Export
//
// Export metrics in Prometheus format:
//
//	exporter := metrics.NewPrometheusExporter(collector, "v2verifier")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := metrics.NewSimpleTracer()
//	metrics.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := metrics.NewOTelTracer("v2verifier")
//	metrics.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := metrics.StartSpan(ctx, metrics.SpanSPDUSign)
//	defer end(nil) // or end(err) on error
//
//	// Use with OpenTelemetry SDK (implement the Tracer interface)
//	// metrics.SetTracer(myOTelAdapter)
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := metrics.NewLogger(
//		metrics.WithLevel(metrics.LevelInfo),
//		metrics.WithFormat(metrics.FormatJSON),
//		metrics.WithFields(metrics.Fields{"service": "v2verifier"}),
//	)
//
//	logger.Info("spdu reassembled", metrics.Fields{
//		"vehicle_id": vehicleID,
//		"scheme":     "falcon",
//	})
//
//	// Child loggers
//	verifyLog := logger.Named("verify").With(metrics.Fields{"vehicle_id": vehicleID})
//	verifyLog.Debug("checking signature")
//
// # Health Checks
//
// Provide health check endpoints for Kubernetes and load balancers:
//
//	health := metrics.NewHealthCheck(collector, "1.0.0")
//	health.AddCheck("crypto", func() error {
//		// Verify crypto subsystem
//		return nil
//	})
//
//	http.Handle("/health", health.Handler())
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler())
//
// # Observability Server
//
// Start a complete observability server:
//
//	server := metrics.NewServer(metrics.ServerConfig{
//		Collector:        collector,
//		Version:          "1.0.0",
//		Namespace:        "v2verifier",
//		EnablePrometheus: true,
//		EnableHealth:     true,
//	})
//
//	go server.ListenAndServe(":9090")
//
// This provides:
//   - /metrics - Prometheus metrics
//   - /health  - Detailed health status
//   - /healthz - Kubernetes liveness probe
//   - /readyz  - Kubernetes readiness probe
package metrics
