package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/twardokus/v2verifier/internal/config"
	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/guiforward"
	"github.com/twardokus/v2verifier/pkg/keystore"
	"github.com/twardokus/v2verifier/pkg/present"
	"github.com/twardokus/v2verifier/pkg/reassembly"
	metrics "github.com/twardokus/v2verifier/pkg/telemetry"
	"github.com/twardokus/v2verifier/pkg/transport"
	"github.com/twardokus/v2verifier/pkg/verify"
	pkgversion "github.com/twardokus/v2verifier/pkg/version"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// watchdogTimeout bounds how long the receiver waits for progress before
// giving up on a run that loss has made unable to finish (spec.md §9,
// "receiver termination" open question).
const watchdogTimeout = 2 * constants.RecencyWindowMillis * time.Millisecond

// reapInterval is how often the reassembly reaper sweeps for entries that
// never completed.
const reapInterval = 5 * time.Second

func runReceiver(args config.RuntimeArgs, scenario config.ScenarioConfig, collector *metrics.Collector, logger *metrics.Logger) error {
	scheme, err := scenario.SchemeTag()
	if err != nil {
		return err
	}

	port := constants.ProductionPort
	if args.Test {
		port = config.TestPort()
	}

	keys := keystore.NewFileKeyStore(".")
	verifier := verify.NewVerifier(keys)
	table := reassembly.NewTable()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if addr := config.ObsAddr(); addr != "" {
		obsServer := metrics.NewServer(metrics.ServerConfig{
			Collector:        collector,
			Version:          pkgversion.Full(),
			Namespace:        "v2verifier",
			EnablePrometheus: true,
			EnableHealth:     true,
		})
		go func() {
			if err := obsServer.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("observability server error", metrics.Fields{"error": err.Error()})
			}
		}()
		logger.Info("observability server listening", metrics.Fields{"addr": addr})
	}
	reaper := reassembly.NewReaper(table, reapInterval, constants.RecencyWindowMillis*time.Millisecond, func(count int) {
		for i := 0; i < count; i++ {
			collector.ReassemblyEvicted()
		}
		logger.Warn("reassembly entries evicted", metrics.Fields{"count": count})
	})
	reaper.Start(ctx)
	defer reaper.Stop()

	receiver, err := transport.Receiver(port)
	if err != nil {
		return err
	}
	defer receiver.Close()
	receiver.SetReadTimeout(watchdogTimeout)

	var forwarder *guiforward.Forwarder
	if args.GUI != config.GUINone {
		forwarder, err = guiforward.Dial(fmt.Sprintf("%s:%d", destinationHost, guiPort(args.GUI)))
		if err != nil {
			logger.Warn("gui forwarding disabled", metrics.Fields{"error": err.Error()})
			forwarder = nil
		} else {
			defer forwarder.Close()
		}
	}

	formatter := present.NewFormatter(os.Stdout)

	expected := int(scenario.NumVehicles) * int(scenario.NumMessages)
	logger.Info("receiver starting", metrics.Fields{
		"expected": expected,
		"scheme":   scheme.String(),
		"port":     port,
	})

	reassemblyStart := make(map[uint64]time.Time)
	completed := 0

	runStart := time.Now()
	var firstDatagram, lastCompletion time.Time

	for completed < expected {
		fragment, _, receivedAt, err := receiver.Receive()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logger.Warn("receiver watchdog timed out waiting for progress", metrics.Fields{
					"completed": completed,
					"expected":  expected,
				})
				break
			}
			collector.RecordTransportError()
			logger.Error("fragment receive error", metrics.Fields{"error": err.Error()})
			continue
		}
		if firstDatagram.IsZero() {
			firstDatagram = receivedAt
		}
		collector.RecordFragmentReceived(wire.FragmentWireSize)

		key := wire.MessageKey(fragment.VehicleID, fragment.SequenceNumber)
		startedAt, seen := reassemblyStart[key]
		evicted := seen && receivedAt.Sub(startedAt) > constants.RecencyWindowMillis*time.Millisecond
		if !seen || evicted {
			reassemblyStart[key] = receivedAt
			collector.ReassemblyStarted()
		}

		entry, complete := table.Add(fragment, receivedAt)
		if !complete {
			continue
		}

		completedStart := reassemblyStart[key]
		delete(reassemblyStart, key)
		collector.ReassemblyCompleted(receivedAt.Sub(completedStart))

		verifyStart := time.Now()
		result, err := verifier.Verify(int(fragment.VehicleID), entry.Scheme, entry.Data, entry.Signature(), receivedAt)
		collector.RecordVerifyLatency(time.Since(verifyStart))
		if err != nil {
			collector.RecordVerifyError()
			logger.Error("verification error", metrics.Fields{"vehicle_id": fragment.VehicleID, "error": err.Error()})
			continue
		}

		if !result.CertOK {
			collector.RecordCertFailure()
		}
		if !result.SigOK {
			collector.RecordSigFailure()
		}
		if !result.Recent {
			collector.RecordStaleRejection()
		}
		if result.Valid {
			collector.RecordSPDUValid()
		} else {
			collector.RecordSPDUInvalid()
		}

		formatter.Divider()
		formatter.BSM(entry.Data.TBSData.BSM)
		formatter.SPDU(fragment.VehicleID, fragment.SequenceNumber, fragment.FragmentCount, entry.Scheme, entry.Data.TBSData.Header.TimestampMicros, result)

		if forwarder != nil {
			record := guiforward.FromBSM(entry.Data.TBSData.BSM, result.Valid, fragment.VehicleID)
			if err := forwarder.Send(record); err != nil {
				logger.Warn("gui forward send failed", metrics.Fields{"error": err.Error()})
			}
		}

		completed++
		lastCompletion = receivedAt
	}

	totalUs := time.Since(runStart).Microseconds()
	var firstUs, lastUs int64
	if !firstDatagram.IsZero() {
		firstUs = firstDatagram.Sub(runStart).Microseconds()
	}
	if !lastCompletion.IsZero() {
		lastUs = lastCompletion.Sub(runStart).Microseconds()
	}

	logger.Info("receiver complete", metrics.Fields{
		"completed": completed,
		"expected":  expected,
		"total_us":  totalUs,
	})

	sink := NewMetricsSink(config.MetricsFile(), config.MetricsRun(), config.MetricsNote())
	if err := sink.WriteRun(int(scheme), totalUs, firstUs, lastUs); err != nil {
		logger.Error("metrics sink write failed", metrics.Fields{"error": err.Error()})
	}

	return nil
}

func guiPort(mode config.GUIMode) int {
	if mode == config.GUIWeb {
		return constants.GUIPortWeb
	}
	return constants.GUIPortTk
}
