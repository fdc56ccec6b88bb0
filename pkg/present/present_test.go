package present

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/verify"
	"github.com/twardokus/v2verifier/pkg/wire"
)

func TestFormatterDivider(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)
	f.Divider()

	line := strings.TrimRight(buf.String(), "\n")
	if len(line) != dividerWidth {
		t.Errorf("Divider() length = %d, want %d", len(line), dividerWidth)
	}
	if strings.Trim(line, "-") != "" {
		t.Error("Divider() should be all dashes")
	}
}

func TestFormatterSPDUValid(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	result := verify.Result{CertOK: true, SigOK: true, Recent: true, Valid: true}
	f.SPDU(3, 42, 2, constants.SchemeFalcon, time.Now().UnixMicro(), result)

	out := buf.String()
	if !strings.Contains(out, "ID:\t3") {
		t.Error("expected vehicle ID in output")
	}
	if !strings.Contains(out, "Sequence:\t42") {
		t.Error("expected sequence number in output")
	}
	if !strings.Contains(out, "Valid:\tTRUE") {
		t.Error("expected TRUE for a valid SPDU")
	}
	if !strings.Contains(out, "Scheme:\tFalcon") {
		t.Error("expected scheme name in output")
	}
}

func TestFormatterSPDUInvalid(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	result := verify.Result{CertOK: true, SigOK: false, Recent: true, Valid: false}
	f.SPDU(1, 0, 1, constants.SchemeECDSA, time.Now().UnixMicro(), result)

	if !strings.Contains(buf.String(), "Valid:\tFALSE") {
		t.Error("expected FALSE for an invalid SPDU")
	}
}

func TestFormatterBSM(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf)

	bsm := wire.BSM{Latitude: 42.1, Longitude: -71.2, Elevation: 12.0, SpeedKPH: 55.5, HeadingDegrees: 180.0}
	f.BSM(bsm)

	out := buf.String()
	if !strings.Contains(out, "42.1") || !strings.Contains(out, "-71.2") {
		t.Error("expected location fields in output")
	}
	if !strings.Contains(out, "55.5") {
		t.Error("expected speed in output")
	}
	if !strings.Contains(out, "180") {
		t.Error("expected heading in output")
	}
}
