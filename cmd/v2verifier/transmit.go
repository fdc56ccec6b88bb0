package main

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/twardokus/v2verifier/internal/config"
	"github.com/twardokus/v2verifier/internal/constants"
	metrics "github.com/twardokus/v2verifier/pkg/telemetry"
	"github.com/twardokus/v2verifier/pkg/keystore"
	"github.com/twardokus/v2verifier/pkg/spdu"
	"github.com/twardokus/v2verifier/pkg/transport"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// destinationHost is the simulated broadcast target: every transmitter and
// the receiver run on one machine for this simulator, so there is no real
// link-layer broadcast to join.
const destinationHost = "127.0.0.1"

// runTransmitter broadcasts scenario.NumMessages signed SPDUs from each of
// scenario.NumVehicles vehicles, one goroutine per vehicle, joined by a
// WaitGroup (spec.md §5).
func runTransmitter(args config.RuntimeArgs, scenario config.ScenarioConfig, collector *metrics.Collector, logger *metrics.Logger) error {
	scheme, err := scenario.SchemeTag()
	if err != nil {
		return err
	}

	port := constants.ProductionPort
	if args.Test {
		port = config.TestPort()
	}
	addr := fmt.Sprintf("%s:%d", destinationHost, port)
	fragmentSize := config.ClampFragmentSize(scenario.Falcon.FragmentBytes)
	lossRate := config.PacketLossRate()

	keys := keystore.NewFileKeyStore(".")

	logger.Info("transmitter starting", metrics.Fields{
		"vehicles": scenario.NumVehicles,
		"messages": scenario.NumMessages,
		"scheme":   scheme.String(),
		"addr":     addr,
	})

	var wg sync.WaitGroup
	errs := make(chan error, int(scenario.NumVehicles))

	for vehicleID := 0; vehicleID < int(scenario.NumVehicles); vehicleID++ {
		wg.Add(1)
		go func(vehicleID int) {
			defer wg.Done()
			if err := transmitVehicle(vehicleID, addr, scheme, scenario, fragmentSize, lossRate, keys, collector, logger); err != nil {
				errs <- fmt.Errorf("vehicle %d: %w", vehicleID, err)
			}
		}(vehicleID)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}
	return nil
}

func transmitVehicle(vehicleID int, addr string, scheme constants.SchemeTag, scenario config.ScenarioConfig, fragmentSize int, lossRate float64, keys keystore.KeyStore, collector *metrics.Collector, logger *metrics.Logger) error {
	trace, err := keys.Trace(vehicleID)
	if err != nil {
		return err
	}

	sender, err := transport.Sender(addr)
	if err != nil {
		collector.RecordTransportError()
		return err
	}
	defer sender.Close()

	builder := spdu.NewBuilder(keys)
	signer := spdu.NewSigner(keys, fragmentSize)
	rng := rand.New(rand.NewSource(int64(vehicleID) + 1))

	var dropped, resent int

	for seq := 0; seq < int(scenario.NumMessages); seq++ {
		timestep := seq % len(trace)

		signStart := time.Now()
		data, err := builder.Build(vehicleID, trace, timestep, time.Now().UnixMicro())
		if err != nil {
			collector.RecordSignError()
			return err
		}
		fragments, err := signer.Sign(vehicleID, scheme, uint32(seq), data)
		if err != nil {
			collector.RecordSignError()
			return err
		}
		collector.RecordSignLatency(time.Since(signStart))

		var resendQueue []*wire.Fragment
		for _, fragment := range fragments {
			if rng.Float64() < lossRate {
				dropped++
				resendQueue = append(resendQueue, fragment)
				continue
			}
			if err := sender.Send(fragment); err != nil {
				collector.RecordTransportError()
				return err
			}
			collector.RecordFragmentSent(wire.FragmentWireSize)
		}

		if len(resendQueue) > 0 {
			time.Sleep(5 * time.Millisecond)
			for _, fragment := range resendQueue {
				if err := sender.Send(fragment); err != nil {
					collector.RecordTransportError()
					return err
				}
				collector.RecordFragmentSent(wire.FragmentWireSize)
				resent++
			}
		}

		time.Sleep(100 * time.Millisecond)
	}

	logger.Info("vehicle transmission complete", metrics.Fields{
		"vehicle_id": vehicleID,
		"dropped":    dropped,
		"resent":     resent,
		"loss_rate":  lossRate,
	})
	return nil
}
