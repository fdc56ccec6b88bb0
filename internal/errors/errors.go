// Package errors defines the error taxonomy for the v2verifier V2X
// message-security simulator. Startup and key-material failures are fatal
// by convention; verification outcomes are booleans, not errors, and never
// appear here (spec.md §7).
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration and CLI argument parsing.
var (
	// ErrInvalidArgs indicates the process was invoked with an argument
	// combination that does not match the positional grammar.
	ErrInvalidArgs = errors.New("config: invalid command-line arguments")

	// ErrMissingConfig indicates the scenario configuration file could not
	// be located.
	ErrMissingConfig = errors.New("config: scenario config not found")

	// ErrInvalidScenario indicates the scenario configuration failed
	// validation (e.g. zero vehicles, zero messages).
	ErrInvalidScenario = errors.New("config: invalid scenario configuration")

	// ErrUnknownScheme indicates an unrecognized signature scheme name.
	ErrUnknownScheme = errors.New("config: unknown signature scheme")
)

// Sentinel errors for key-material and trace loading.
var (
	// ErrKeyNotFound indicates a private or public key file is missing.
	ErrKeyNotFound = errors.New("keystore: key file not found")

	// ErrKeyMalformed indicates a key file could not be parsed.
	ErrKeyMalformed = errors.New("keystore: key file malformed")

	// ErrKeyWrongCurve indicates a loaded ECDSA key is not on P-256.
	ErrKeyWrongCurve = errors.New("keystore: key is not on the P-256 curve")

	// ErrFalconKeySize indicates a Falcon key's decoded length does not
	// match the expected size for the configured degree.
	ErrFalconKeySize = errors.New("keystore: falcon key has unexpected length")

	// ErrTraceNotFound indicates a vehicle trace file is missing.
	ErrTraceNotFound = errors.New("keystore: trace file not found")

	// ErrTraceMalformed indicates a trace file row could not be parsed.
	ErrTraceMalformed = errors.New("keystore: trace file malformed")
)

// Sentinel errors for signing and certificate construction.
var (
	// ErrSignFailed indicates the configured signature scheme failed to
	// produce a signature.
	ErrSignFailed = errors.New("spdu: signature generation failed")

	// ErrSignatureTooLarge indicates a payload signature exceeded its size
	// limit: MaxFragment for an ECDSA signature, or MaxSignatureTotal for a
	// Falcon signature, which then cannot be fragmented.
	ErrSignatureTooLarge = errors.New("spdu: signature exceeds maximum total size")

	// ErrCertSignatureTooLarge indicates the certificate signature
	// exceeded MaxCertSignature.
	ErrCertSignatureTooLarge = errors.New("spdu: certificate signature exceeds maximum size")
)

// Sentinel errors for wire encoding/decoding.
var (
	// ErrFragmentTooShort indicates a received datagram was too small to
	// contain a complete fragment.
	ErrFragmentTooShort = errors.New("wire: fragment too short")

	// ErrFragmentMalformed indicates a fragment's internal length fields
	// are inconsistent (e.g. offset+length exceeds the buffer).
	ErrFragmentMalformed = errors.New("wire: fragment malformed")

	// ErrUnknownSchemeTag indicates a fragment carried an unrecognized
	// scheme tag.
	ErrUnknownSchemeTag = errors.New("wire: unknown scheme tag")
)

// Sentinel errors for transport operations. These are treated as fatal at
// startup (bind/listen failures) per spec.md §7.
var (
	// ErrSocketBind indicates the UDP listener could not bind its port.
	ErrSocketBind = errors.New("transport: socket bind failed")

	// ErrSocketSend indicates a send operation failed irrecoverably.
	ErrSocketSend = errors.New("transport: socket send failed")
)

// KeyError wraps a key-material failure with the vehicle and key kind that
// triggered it.
type KeyError struct {
	VehicleID int
	Kind      string // "ecdsa", "cert", "falcon-secret", "falcon-public", "trace"
	Err       error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("keystore: vehicle %d %s key: %v", e.VehicleID, e.Kind, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// NewKeyError creates a new KeyError.
func NewKeyError(vehicleID int, kind string, err error) *KeyError {
	return &KeyError{VehicleID: vehicleID, Kind: kind, Err: err}
}

// WireError wraps a codec failure with the offending byte offset.
type WireError struct {
	Offset int
	Err    error
}

func (e *WireError) Error() string {
	return fmt.Sprintf("wire: at offset %d: %v", e.Offset, e.Err)
}

func (e *WireError) Unwrap() error {
	return e.Err
}

// NewWireError creates a new WireError.
func NewWireError(offset int, err error) *WireError {
	return &WireError{Offset: offset, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
