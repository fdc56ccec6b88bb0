// Package present formats completed SPDUs for a human-readable console
// transcript, separate from structured logging so demo and --test runs
// keep a readable stream regardless of log level (SPEC_FULL.md
// "Console presentation").
package present

import (
	"fmt"
	"io"
	"time"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/verify"
	"github.com/twardokus/v2verifier/pkg/wire"
)

const dividerWidth = 80

// Formatter writes SPDU and BSM summaries to an underlying writer.
type Formatter struct {
	w io.Writer
}

// NewFormatter creates a Formatter writing to w.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Divider writes a full-width divider line.
func (f *Formatter) Divider() {
	for i := 0; i < dividerWidth; i++ {
		fmt.Fprint(f.w, "-")
	}
	fmt.Fprintln(f.w)
}

// SPDU writes the SPDU summary: vehicle ID, sequence number, verification
// outcome, fragment count, scheme, and signing timestamp.
func (f *Formatter) SPDU(vehicleID uint8, sequenceNumber uint32, fragmentCount uint16, scheme constants.SchemeTag, timestampMicros int64, result verify.Result) {
	fmt.Fprintln(f.w, "SPDU received!")
	fmt.Fprintf(f.w, "\tID:\t%d\n", vehicleID)
	fmt.Fprintf(f.w, "\tSequence:\t%d\n", sequenceNumber)
	fmt.Fprintf(f.w, "\tValid:\t%s\n", validLabel(result.Valid))
	fmt.Fprintf(f.w, "\tFragments:\t%d\n", fragmentCount)
	fmt.Fprintf(f.w, "\tScheme:\t%s\n", scheme)
	fmt.Fprintf(f.w, "\tSent:\t%s\n", time.UnixMicro(timestampMicros).UTC().Format(time.RFC3339))
}

// BSM writes the BSM field summary carried by an SPDU.
func (f *Formatter) BSM(bsm wire.BSM) {
	fmt.Fprintln(f.w, "BSM received!")
	fmt.Fprintf(f.w, "\tLocation:\t%v, %v, %v\n", bsm.Latitude, bsm.Longitude, bsm.Elevation)
	fmt.Fprintf(f.w, "\tSpeed:\t\t%v\n", bsm.SpeedKPH)
	fmt.Fprintf(f.w, "\tHeading:\t%v\n", bsm.HeadingDegrees)
}

func validLabel(valid bool) string {
	if valid {
		return "TRUE"
	}
	return "FALSE"
}
