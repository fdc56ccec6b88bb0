// Package wire defines the SPDU fragment wire format exchanged between V2X
// vehicles over UDP, and the codec that serializes and deserializes it.
//
// A signed BSM (Basic Safety Message) is carried inside one or more
// fragments. ECDSA signatures fit in a single fragment; Falcon-512
// signatures, which exceed a single fragment's budget, are split across
// FragmentCount ordered fragments that all replicate the same tbsData,
// certificate, and certificate signature (spec.md §3, §4.2-§4.3).
package wire

import (
	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
)

// BSM is the Basic Safety Message payload signed inside an SPDU.
type BSM struct {
	Latitude       float64
	Longitude      float64
	Elevation      float64
	SpeedKPH       float64
	HeadingDegrees float64
}

// HeaderInfo carries the fields replicated from the IEEE 1609.2 header that
// this simulator actually uses: the signing timestamp, in microseconds
// since the Unix epoch.
type HeaderInfo struct {
	TimestampMicros int64
}

// TBSData ("to be signed") is the exact byte payload the sender's signature
// covers: the BSM plus the header timestamp (spec.md §4.2).
type TBSData struct {
	BSM    BSM
	Header HeaderInfo
}

// Certificate is an opaque fixed-size certificate blob (an uncompressed
// P-256 public key point, padded to CertificateSize bytes).
type Certificate [constants.CertificateSize]byte

// SignedData bundles the to-be-signed payload with the sender's embedded
// certificate and that certificate's own ECDSA signature (spec.md §3).
type SignedData struct {
	TBSData             TBSData
	Cert                Certificate
	CertSignature       [constants.MaxCertSignature]byte
	CertSignatureLength uint32
}

// Fragment is one wire unit of a (possibly split) SPDU, mirroring the
// original simulator's spdu_fragment layout field-for-field.
type Fragment struct {
	VehicleID      uint8
	SequenceNumber uint32

	// LLC/WSMP framing fields. Constant across every fragment of every
	// SPDU; carried for DSRC/WSMP fidelity and otherwise inert.
	LLCDsapSsap              uint32
	LLCControl               uint8
	LLCType                  uint32
	WSMPNSubtypeOptVersion   uint8
	WSMPNTPID                uint8
	WSMPTHeaderLengthAndPSID uint8
	WSMPTLength              uint8

	Scheme constants.SchemeTag

	FragmentIndex uint16
	FragmentCount uint16

	// SignatureBufferLength is the total length, across all fragments, of
	// the signature this fragment belongs to.
	SignatureBufferLength uint32

	// FragmentLength is the number of valid signature bytes carried by
	// this fragment (<= MaxFragment); the remainder of SignatureFragment
	// is zero padding.
	FragmentLength uint32

	// SignatureOffset is this fragment's byte offset into the full
	// signature buffer.
	SignatureOffset uint32

	CertSignatureBufferLength uint32

	Data SignedData

	SignatureFragment [constants.MaxFragment]byte
}

// MessageKey combines a vehicle ID and sequence number into the single
// integer key used to correlate fragments of the same SPDU during
// reassembly (spec.md §4.4), mirroring the original's make_message_key.
func MessageKey(vehicleID uint8, sequenceNumber uint32) uint64 {
	return uint64(vehicleID)<<32 | uint64(sequenceNumber)
}

// Validate checks the internal consistency of a fragment's length fields
// before it is admitted to reassembly (spec.md §3, §7).
func (f *Fragment) Validate() error {
	if !f.Scheme.IsValid() {
		return verrors.ErrUnknownSchemeTag
	}
	if f.FragmentCount == 0 || f.FragmentIndex >= f.FragmentCount {
		return verrors.ErrFragmentMalformed
	}
	if f.FragmentLength > constants.MaxFragment {
		return verrors.ErrFragmentMalformed
	}
	if f.SignatureBufferLength > constants.MaxSignatureTotal {
		return verrors.ErrFragmentMalformed
	}
	if uint64(f.SignatureOffset)+uint64(f.FragmentLength) > uint64(f.SignatureBufferLength) {
		return verrors.ErrFragmentMalformed
	}
	if f.CertSignatureBufferLength > constants.MaxCertSignature {
		return verrors.ErrFragmentMalformed
	}
	if f.Data.CertSignatureLength > constants.MaxCertSignature {
		return verrors.ErrFragmentMalformed
	}
	return nil
}

// FragmentWireSize is the exact, fixed, on-the-wire byte size of one
// encoded Fragment.
const FragmentWireSize = fragmentHeaderSize + tbsDataSize + constants.CertificateSize +
	constants.MaxCertSignature + 4 /* CertSignatureLength */ + constants.MaxFragment

const fragmentHeaderSize = 1 + 4 + // VehicleID, SequenceNumber
	4 + 1 + 4 + 1 + 1 + 1 + 1 + // LLC/WSMP framing
	1 + // Scheme
	2 + 2 + // FragmentIndex, FragmentCount
	4 + 4 + 4 + 4 // SignatureBufferLength, FragmentLength, SignatureOffset, CertSignatureBufferLength

const tbsDataSize = 5*8 + 8 // BSM (5 float64) + HeaderInfo.TimestampMicros
