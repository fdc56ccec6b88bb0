// Package config loads the scenario configuration and command-line
// arguments for the v2verifier simulator, applying the same
// environment-variable override precedence as the original simulator
// (env vars win over the JSON scenario file).
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
)

// Environment variable names recognized by the simulator.
const (
	EnvConfigPath        = "V2X_CONFIG_PATH"
	EnvSignatureScheme   = "V2X_SIGNATURE_SCHEME"
	EnvFalconFragment    = "V2X_FALCON_FRAGMENT_BYTES"
	EnvFalconCompression = "V2X_FALCON_COMPRESSION"
	EnvTestPort          = "V2X_TEST_PORT"
	EnvPacketLossRate    = "V2X_PACKET_LOSS_RATE"
	EnvMetricsFile       = "V2X_METRICS_FILE"
	EnvMetricsRun        = "V2X_METRICS_RUN"
	EnvMetricsNote       = "V2X_METRICS_NOTE"
	EnvObsAddr           = "V2X_OBS_ADDR"
)

// FalconOptions configures the post-quantum signature path (spec.md §4.3).
type FalconOptions struct {
	FragmentBytes int    `json:"fragmentBytes"`
	Compression   string `json:"compression"`
}

// ScenarioConfig describes one simulation run: how many vehicles transmit,
// how many messages each sends, and which signature scheme is in effect.
type ScenarioConfig struct {
	NumVehicles uint8         `json:"numVehicles"`
	NumMessages uint16        `json:"numMessages"`
	Scheme      string        `json:"signatureScheme"`
	Falcon      FalconOptions `json:"falcon"`
}

type scenarioFile struct {
	Scenario ScenarioConfig `json:"scenario"`
}

// LoadScenario reads and parses the scenario configuration file at path.
func LoadScenario(path string) (ScenarioConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScenarioConfig{}, fmt.Errorf("%w: %s", verrors.ErrMissingConfig, path)
		}
		return ScenarioConfig{}, err
	}

	var doc scenarioFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ScenarioConfig{}, fmt.Errorf("%w: %v", verrors.ErrInvalidScenario, err)
	}

	cfg := doc.Scenario
	if cfg.Falcon.Compression == "" {
		cfg.Falcon.Compression = "none"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "ecdsa"
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays environment variables on top of a
// file-loaded ScenarioConfig. Environment variables take precedence, as
// in the original simulator.
func ApplyEnvOverrides(cfg *ScenarioConfig) {
	if v := os.Getenv(EnvSignatureScheme); v != "" {
		cfg.Scheme = v
	}
	if v := os.Getenv(EnvFalconFragment); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Falcon.FragmentBytes = n
		}
	}
	if v := os.Getenv(EnvFalconCompression); v != "" {
		cfg.Falcon.Compression = v
	}
}

// SchemeTag resolves the configured scheme name to its wire tag.
func (c ScenarioConfig) SchemeTag() (constants.SchemeTag, error) {
	switch strings.ToLower(c.Scheme) {
	case "ecdsa", "":
		return constants.SchemeECDSA, nil
	case "falcon":
		return constants.SchemeFalcon, nil
	default:
		return 0, fmt.Errorf("%w: %q", verrors.ErrUnknownScheme, c.Scheme)
	}
}

// ClampFragmentSize mirrors the original clamp_fragment_size: a
// non-positive value falls back to the maximum fragment size, and any
// oversized value is capped to it.
func ClampFragmentSize(requested int) int {
	if requested <= 0 {
		return constants.MaxFragment
	}
	if requested > constants.MaxFragment {
		return constants.MaxFragment
	}
	return requested
}

// Validate checks the scenario configuration for internal consistency
// (spec.md §7).
func (c ScenarioConfig) Validate() error {
	if c.NumVehicles == 0 {
		return fmt.Errorf("%w: numVehicles must be > 0", verrors.ErrInvalidScenario)
	}
	if c.NumMessages == 0 {
		return fmt.Errorf("%w: numMessages must be > 0", verrors.ErrInvalidScenario)
	}
	if _, err := c.SchemeTag(); err != nil {
		return err
	}
	return nil
}

// TestPort returns the shared transmit/receive port used in test mode,
// read from V2X_TEST_PORT or constants.DefaultTestPort.
func TestPort() int {
	if v := os.Getenv(EnvTestPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return constants.DefaultTestPort
}

// PacketLossRate returns the configured per-fragment drop probability
// from V2X_PACKET_LOSS_RATE, clamped to [0, 1]. Defaults to 0.
func PacketLossRate() float64 {
	v := os.Getenv(EnvPacketLossRate)
	if v == "" {
		return 0
	}
	rate, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return math.Min(1, math.Max(0, rate))
}

// MetricsFile returns the path to append latency metrics to, or "" if
// metrics collection is disabled.
func MetricsFile() string {
	return os.Getenv(EnvMetricsFile)
}

// MetricsRun returns the run identifier to tag metrics rows with.
func MetricsRun() string {
	return os.Getenv(EnvMetricsRun)
}

// MetricsNote returns the free-form semicolon-delimited key=value note to
// attach to metrics rows (spec.md §6; see scripts/metrics_report.py's
// parse_note convention in the original simulator).
func MetricsNote() string {
	return os.Getenv(EnvMetricsNote)
}

// ConfigPath returns the scenario config file path, from V2X_CONFIG_PATH
// or the supplied default.
func ConfigPath(def string) string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return def
}

// ObsAddr returns the address the receiver's observability HTTP server
// (metrics/health endpoints) should listen on, or "" if it should stay
// disabled — the teacher's own "-obs-addr" demo flag, exposed here as an
// env var like the rest of the simulator's runtime knobs.
func ObsAddr() string {
	return os.Getenv(EnvObsAddr)
}
