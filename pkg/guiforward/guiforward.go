// Package guiforward best-effort forwards completed BSMs to an external
// GUI process over UDP, matching the original simulator's tkgui/webgui
// forwarding socket (SPEC_FULL.md "GUI forwarding socket"). A send
// failure here is logged by the caller and never treated as fatal, the
// same way the original ignores its unchecked sendto on this path.
package guiforward

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"

	"github.com/twardokus/v2verifier/pkg/wire"
)

// recordSize is the wire size of Record: five float64 BSM fields, a
// validity flag, an "active" flag, a reserved int32, and the vehicle ID
// as a float32 - the same field order the original packs into its
// packed_bsm_for_gui struct.
const recordSize = 5*8 + 1 + 1 + 4 + 4

// Record is one forwarded BSM update.
type Record struct {
	Latitude       float64
	Longitude      float64
	Elevation      float64
	SpeedKPH       float64
	HeadingDegrees float64
	Valid          bool
	Active         bool
	Reserved       int32
	VehicleID      float32
}

// FromBSM builds a Record from a decoded BSM, the SPDU's validity, and
// its originating vehicle ID.
func FromBSM(bsm wire.BSM, valid bool, vehicleID uint8) Record {
	return Record{
		Latitude:       bsm.Latitude,
		Longitude:      bsm.Longitude,
		Elevation:      bsm.Elevation,
		SpeedKPH:       bsm.SpeedKPH,
		HeadingDegrees: bsm.HeadingDegrees,
		Valid:          valid,
		Active:         true,
		Reserved:       7,
		VehicleID:      float32(vehicleID),
	}
}

func (r Record) encode() [recordSize]byte {
	var buf [recordSize]byte
	off := 0
	putFloat64 := func(v float64) {
		binary.BigEndian.PutUint64(buf[off:], math.Float64bits(v))
		off += 8
	}
	putFloat64(r.Latitude)
	putFloat64(r.Longitude)
	putFloat64(r.Elevation)
	putFloat64(r.SpeedKPH)
	putFloat64(r.HeadingDegrees)
	buf[off] = boolByte(r.Valid)
	off++
	buf[off] = boolByte(r.Active)
	off++
	binary.BigEndian.PutUint32(buf[off:], uint32(r.Reserved))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(r.VehicleID))
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Forwarder sends Records to a fixed UDP destination (the tkgui or
// webgui listener port).
type Forwarder struct {
	conn *net.UDPConn
}

// Dial opens a UDP socket targeting addr (host:port).
func Dial(addr string) (*Forwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("guiforward: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("guiforward: dial %s: %w", addr, err)
	}
	return &Forwarder{conn: conn}, nil
}

// Send writes one Record to the GUI socket. Errors are returned rather
// than swallowed here; callers that want the original's fire-and-forget
// behavior should log and discard them.
func (f *Forwarder) Send(r Record) error {
	buf := r.encode()
	_, err := f.conn.Write(buf[:])
	return err
}

// Close closes the underlying socket.
func (f *Forwarder) Close() error {
	return f.conn.Close()
}
