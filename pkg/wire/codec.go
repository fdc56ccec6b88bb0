// codec.go implements serialization and deserialization of SPDU fragments.
//
// Wire Format (fixed width, no length prefix — one fragment occupies
// exactly one UDP datagram):
//
//	+-----------+----------------+---------+------------+------------------+-------------------+
//	| VehicleID | SequenceNumber | Framing | FragInfo   | SignedData       | SignatureFragment |
//	| 1B        | 4B BE          | 13B     | 1+2+2+16B  | 48+128+72+4B     | 512B              |
//	+-----------+----------------+---------+------------+------------------+-------------------+
//
// All multi-byte integers are big-endian; floats are encoded via their
// IEEE-754 bit pattern through math.Float64bits/Float64frombits.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
)

// Codec serializes and deserializes Fragment values.
type Codec struct{}

// NewCodec creates a new fragment codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes a Fragment into its fixed-width wire representation.
func (c *Codec) Encode(f *Fragment) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, FragmentWireSize)
	offset := 0

	buf[offset] = f.VehicleID
	offset++
	binary.BigEndian.PutUint32(buf[offset:], f.SequenceNumber)
	offset += 4

	binary.BigEndian.PutUint32(buf[offset:], f.LLCDsapSsap)
	offset += 4
	buf[offset] = f.LLCControl
	offset++
	binary.BigEndian.PutUint32(buf[offset:], f.LLCType)
	offset += 4
	buf[offset] = f.WSMPNSubtypeOptVersion
	offset++
	buf[offset] = f.WSMPNTPID
	offset++
	buf[offset] = f.WSMPTHeaderLengthAndPSID
	offset++
	buf[offset] = f.WSMPTLength
	offset++

	buf[offset] = uint8(f.Scheme)
	offset++

	binary.BigEndian.PutUint16(buf[offset:], f.FragmentIndex)
	offset += 2
	binary.BigEndian.PutUint16(buf[offset:], f.FragmentCount)
	offset += 2

	binary.BigEndian.PutUint32(buf[offset:], f.SignatureBufferLength)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], f.FragmentLength)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], f.SignatureOffset)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], f.CertSignatureBufferLength)
	offset += 4

	offset = putFloat64(buf, offset, f.Data.TBSData.BSM.Latitude)
	offset = putFloat64(buf, offset, f.Data.TBSData.BSM.Longitude)
	offset = putFloat64(buf, offset, f.Data.TBSData.BSM.Elevation)
	offset = putFloat64(buf, offset, f.Data.TBSData.BSM.SpeedKPH)
	offset = putFloat64(buf, offset, f.Data.TBSData.BSM.HeadingDegrees)
	binary.BigEndian.PutUint64(buf[offset:], uint64(f.Data.TBSData.Header.TimestampMicros))
	offset += 8

	copy(buf[offset:], f.Data.Cert[:])
	offset += len(f.Data.Cert)

	copy(buf[offset:], f.Data.CertSignature[:])
	offset += len(f.Data.CertSignature)

	binary.BigEndian.PutUint32(buf[offset:], f.Data.CertSignatureLength)
	offset += 4

	copy(buf[offset:], f.SignatureFragment[:])
	offset += len(f.SignatureFragment)

	return buf, nil
}

// Decode deserializes a Fragment from its fixed-width wire representation.
func (c *Codec) Decode(data []byte) (*Fragment, error) {
	if len(data) < FragmentWireSize {
		return nil, verrors.NewWireError(len(data), verrors.ErrFragmentTooShort)
	}

	f := &Fragment{}
	offset := 0

	f.VehicleID = data[offset]
	offset++
	f.SequenceNumber = binary.BigEndian.Uint32(data[offset:])
	offset += 4

	f.LLCDsapSsap = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.LLCControl = data[offset]
	offset++
	f.LLCType = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.WSMPNSubtypeOptVersion = data[offset]
	offset++
	f.WSMPNTPID = data[offset]
	offset++
	f.WSMPTHeaderLengthAndPSID = data[offset]
	offset++
	f.WSMPTLength = data[offset]
	offset++

	f.Scheme = constants.SchemeTag(data[offset])
	offset++

	f.FragmentIndex = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	f.FragmentCount = binary.BigEndian.Uint16(data[offset:])
	offset += 2

	f.SignatureBufferLength = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.FragmentLength = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.SignatureOffset = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.CertSignatureBufferLength = binary.BigEndian.Uint32(data[offset:])
	offset += 4

	f.Data.TBSData.BSM.Latitude, offset = getFloat64(data, offset)
	f.Data.TBSData.BSM.Longitude, offset = getFloat64(data, offset)
	f.Data.TBSData.BSM.Elevation, offset = getFloat64(data, offset)
	f.Data.TBSData.BSM.SpeedKPH, offset = getFloat64(data, offset)
	f.Data.TBSData.BSM.HeadingDegrees, offset = getFloat64(data, offset)
	f.Data.TBSData.Header.TimestampMicros = int64(binary.BigEndian.Uint64(data[offset:]))
	offset += 8

	copy(f.Data.Cert[:], data[offset:offset+len(f.Data.Cert)])
	offset += len(f.Data.Cert)

	copy(f.Data.CertSignature[:], data[offset:offset+len(f.Data.CertSignature)])
	offset += len(f.Data.CertSignature)

	f.Data.CertSignatureLength = binary.BigEndian.Uint32(data[offset:])
	offset += 4

	copy(f.SignatureFragment[:], data[offset:offset+len(f.SignatureFragment)])
	offset += len(f.SignatureFragment)

	if err := f.Validate(); err != nil {
		return nil, verrors.NewWireError(offset, err)
	}

	return f, nil
}

// EncodeTBSData produces the exact byte sequence a signature over t covers:
// the same big-endian/IEEE-754 layout used on the wire, independent of
// fragmentation (spec.md §4.2). Both the signer and the verifier call this
// so they sign and check identical bytes.
func EncodeTBSData(t TBSData) []byte {
	buf := make([]byte, tbsDataSize)
	offset := 0
	offset = putFloat64(buf, offset, t.BSM.Latitude)
	offset = putFloat64(buf, offset, t.BSM.Longitude)
	offset = putFloat64(buf, offset, t.BSM.Elevation)
	offset = putFloat64(buf, offset, t.BSM.SpeedKPH)
	offset = putFloat64(buf, offset, t.BSM.HeadingDegrees)
	binary.BigEndian.PutUint64(buf[offset:], uint64(t.Header.TimestampMicros))
	return buf
}

func putFloat64(buf []byte, offset int, v float64) int {
	binary.BigEndian.PutUint64(buf[offset:], math.Float64bits(v))
	return offset + 8
}

func getFloat64(buf []byte, offset int) (float64, int) {
	v := math.Float64frombits(binary.BigEndian.Uint64(buf[offset:]))
	return v, offset + 8
}
