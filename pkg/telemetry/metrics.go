// Package metrics provides observability primitives for the v2verifier simulator.
//
// The package includes:
//   - Collector counters and gauges, and a Histogram metric type
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from SPDU signing, transport, and
// reassembly.
type Collector struct {
	// Reassembly metrics
	reassembliesActive  atomic.Uint64
	reassembliesStarted atomic.Uint64
	reassembliesEvicted atomic.Uint64
	reassemblyLatency   *Histogram

	// Traffic metrics
	fragmentBytesSent     atomic.Uint64
	fragmentBytesReceived atomic.Uint64
	fragmentsSent         atomic.Uint64
	fragmentsReceived     atomic.Uint64

	// Verification outcome metrics
	certFailures    atomic.Uint64
	sigFailures     atomic.Uint64
	staleRejections atomic.Uint64
	spdusValid      atomic.Uint64
	spdusInvalid    atomic.Uint64

	// Error metrics
	signErrors      atomic.Uint64
	verifyErrors    atomic.Uint64
	transportErrors atomic.Uint64

	// Performance histograms
	signLatency   *Histogram
	verifyLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		reassemblyLatency: NewHistogram(ReassemblyLatencyBuckets),
		signLatency:       NewHistogram(LatencyBuckets),
		verifyLatency:     NewHistogram(LatencyBuckets),
		createdAt:         time.Now(),
		labels:            labels,
	}
}

// Default bucket configurations for histograms.
var (
	// ReassemblyLatencyBuckets for fragment reassembly duration (milliseconds).
	ReassemblyLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	// LatencyBuckets for sign/verify operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Reassembly Metrics ---

// ReassemblyStarted records the creation of a new reassembly table entry,
// keyed by vehicle ID and sequence number.
func (c *Collector) ReassemblyStarted() {
	c.reassembliesActive.Add(1)
	c.reassembliesStarted.Add(1)
}

// ReassemblyCompleted records that every fragment of an SPDU arrived and
// observes the time elapsed since the first fragment was seen.
func (c *Collector) ReassemblyCompleted(d time.Duration) {
	c.decrementActive()
	c.reassemblyLatency.Observe(float64(d.Milliseconds()))
}

// ReassemblyEvicted records a reassembly entry removed by the reaper
// before it ever completed.
func (c *Collector) ReassemblyEvicted() {
	c.decrementActive()
	c.reassembliesEvicted.Add(1)
}

func (c *Collector) decrementActive() {
	for {
		current := c.reassembliesActive.Load()
		if current == 0 {
			return
		}
		if c.reassembliesActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// --- Traffic Metrics ---

// RecordFragmentSent adds to the fragment bytes/count sent counters.
func (c *Collector) RecordFragmentSent(n uint64) {
	c.fragmentBytesSent.Add(n)
	c.fragmentsSent.Add(1)
}

// RecordFragmentReceived adds to the fragment bytes/count received counters.
func (c *Collector) RecordFragmentReceived(n uint64) {
	c.fragmentBytesReceived.Add(n)
	c.fragmentsReceived.Add(1)
}

// --- Verification Metrics ---

// RecordCertFailure increments the certificate-signature failure counter.
func (c *Collector) RecordCertFailure() {
	c.certFailures.Add(1)
}

// RecordSigFailure increments the message-signature failure counter.
func (c *Collector) RecordSigFailure() {
	c.sigFailures.Add(1)
}

// RecordStaleRejection increments the recency-check failure counter.
func (c *Collector) RecordStaleRejection() {
	c.staleRejections.Add(1)
}

// RecordSPDUValid increments the counter of SPDUs that passed all three
// verification checks.
func (c *Collector) RecordSPDUValid() {
	c.spdusValid.Add(1)
}

// RecordSPDUInvalid increments the counter of SPDUs that failed at least
// one verification check.
func (c *Collector) RecordSPDUInvalid() {
	c.spdusInvalid.Add(1)
}

// --- Error Metrics ---

// RecordSignError increments the signing error counter.
func (c *Collector) RecordSignError() {
	c.signErrors.Add(1)
}

// RecordVerifyError increments the verification error counter.
func (c *Collector) RecordVerifyError() {
	c.verifyErrors.Add(1)
}

// RecordTransportError increments the transport error counter.
func (c *Collector) RecordTransportError() {
	c.transportErrors.Add(1)
}

// --- Performance Metrics ---

// RecordSignLatency records SPDU signing latency.
func (c *Collector) RecordSignLatency(d time.Duration) {
	c.signLatency.Observe(float64(d.Microseconds()))
}

// RecordVerifyLatency records SPDU verification latency.
func (c *Collector) RecordVerifyLatency(d time.Duration) {
	c.verifyLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Reassembly metrics
	ReassembliesActive  uint64
	ReassembliesStarted uint64
	ReassembliesEvicted uint64

	// Traffic metrics
	FragmentBytesSent     uint64
	FragmentBytesReceived uint64
	FragmentsSent         uint64
	FragmentsReceived     uint64

	// Verification metrics
	CertFailures    uint64
	SigFailures     uint64
	StaleRejections uint64
	SPDUsValid      uint64
	SPDUsInvalid    uint64

	// Error metrics
	SignErrors      uint64
	VerifyErrors    uint64
	TransportErrors uint64

	// Histogram summaries
	ReassemblyLatency HistogramSummary
	SignLatency       HistogramSummary
	VerifyLatency     HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:             time.Now(),
		Uptime:                time.Since(c.createdAt),
		ReassembliesActive:    c.reassembliesActive.Load(),
		ReassembliesStarted:   c.reassembliesStarted.Load(),
		ReassembliesEvicted:   c.reassembliesEvicted.Load(),
		FragmentBytesSent:     c.fragmentBytesSent.Load(),
		FragmentBytesReceived: c.fragmentBytesReceived.Load(),
		FragmentsSent:         c.fragmentsSent.Load(),
		FragmentsReceived:     c.fragmentsReceived.Load(),
		CertFailures:          c.certFailures.Load(),
		SigFailures:           c.sigFailures.Load(),
		StaleRejections:       c.staleRejections.Load(),
		SPDUsValid:            c.spdusValid.Load(),
		SPDUsInvalid:          c.spdusInvalid.Load(),
		SignErrors:            c.signErrors.Load(),
		VerifyErrors:          c.verifyErrors.Load(),
		TransportErrors:       c.transportErrors.Load(),
		ReassemblyLatency:     c.reassemblyLatency.Summary(),
		SignLatency:           c.signLatency.Summary(),
		VerifyLatency:         c.verifyLatency.Summary(),
		Labels:                c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.reassembliesActive.Store(0)
	c.reassembliesStarted.Store(0)
	c.reassembliesEvicted.Store(0)
	c.fragmentBytesSent.Store(0)
	c.fragmentBytesReceived.Store(0)
	c.fragmentsSent.Store(0)
	c.fragmentsReceived.Store(0)
	c.certFailures.Store(0)
	c.sigFailures.Store(0)
	c.staleRejections.Store(0)
	c.spdusValid.Store(0)
	c.spdusInvalid.Store(0)
	c.signErrors.Store(0)
	c.verifyErrors.Store(0)
	c.transportErrors.Store(0)
	c.reassemblyLatency.Reset()
	c.signLatency.Reset()
	c.verifyLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
