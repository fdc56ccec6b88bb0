// Command v2verifier drives the V2X BSM broadcast simulator: one process
// run either transmits signed Basic Safety Messages on behalf of a fleet
// of vehicles, or receives, reassembles, and verifies them.
package main

import (
	"fmt"
	"os"

	"github.com/twardokus/v2verifier/internal/config"
	metrics "github.com/twardokus/v2verifier/pkg/telemetry"
	pkgversion "github.com/twardokus/v2verifier/pkg/version"
)

func main() {
	if len(os.Args) >= 2 && isHelp(os.Args[1]) {
		printUsage()
		return
	}
	if len(os.Args) >= 2 && os.Args[1] == "version" {
		fmt.Println(pkgversion.Full())
		return
	}

	args, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	logger, collector := setupObservability()
	metrics.SetLogger(logger)
	metrics.SetGlobal(collector)

	scenarioPath := config.ConfigPath("config.json")
	scenario, err := config.LoadScenario(scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.ApplyEnvOverrides(&scenario)
	if err := scenario.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch args.Role {
	case config.RoleTransmitter:
		if err := runTransmitter(args, scenario, collector, logger); err != nil {
			logger.Error("transmitter exited with error", metrics.Fields{"error": err.Error()})
			os.Exit(1)
		}
	case config.RoleReceiver:
		if err := runReceiver(args, scenario, collector, logger); err != nil {
			logger.Error("receiver exited with error", metrics.Fields{"error": err.Error()})
			os.Exit(1)
		}
	}
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "--help" || arg == "-h"
}

func printUsage() {
	fmt.Println(config.Usage())
	fmt.Println()
	fmt.Println(`v2verifier simulates V2X BSM broadcast, signing, and verification
under either classical ECDSA P-256 or post-quantum Falcon-512 signatures.

ARGUMENTS:
    dsrc|cv2x          radio access technology (cosmetic; behavior is identical)
    transmitter         broadcast signed BSMs for every configured vehicle
    receiver            listen, reassemble, verify, and report received SPDUs
    tkgui|webgui|nogui  forward completed BSMs to a GUI listener, or don't
    --test              use the shared test port instead of the production port

ENVIRONMENT:
    V2X_CONFIG_PATH           scenario config path (default ./config.json)
    V2X_SIGNATURE_SCHEME      overrides the scenario's signature scheme
    V2X_FALCON_FRAGMENT_BYTES overrides the Falcon fragment size
    V2X_FALCON_COMPRESSION    overrides the Falcon compression label
    V2X_TEST_PORT             shared transmit/receive port in --test mode
    V2X_PACKET_LOSS_RATE      per-fragment drop probability, clamped to [0,1]
    V2X_METRICS_FILE          append-only CSV metrics output path
    V2X_METRICS_RUN           run identifier tag for the metrics row
    V2X_METRICS_NOTE          free-form semicolon-delimited note
    V2X_OBS_ADDR              receiver observability listen address (metrics/health); unset disables it`)
}
