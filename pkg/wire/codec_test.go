package wire

import (
	"testing"

	"github.com/twardokus/v2verifier/internal/constants"
)

func sampleFragment() *Fragment {
	f := &Fragment{
		VehicleID:                 7,
		SequenceNumber:            42,
		LLCDsapSsap:               constants.LLCDsapSsap,
		LLCControl:                constants.LLCControl,
		LLCType:                   constants.LLCType,
		WSMPNSubtypeOptVersion:    constants.WSMPNSubtypeOptVersion,
		WSMPNTPID:                 constants.WSMPNTPID,
		WSMPTHeaderLengthAndPSID:  constants.WSMPTHeaderLengthAndPSID,
		WSMPTLength:               constants.WSMPTLength,
		Scheme:                    constants.SchemeECDSA,
		FragmentIndex:             0,
		FragmentCount:             1,
		SignatureBufferLength:     64,
		FragmentLength:            64,
		SignatureOffset:           0,
		CertSignatureBufferLength: 70,
	}
	f.Data.TBSData.BSM = BSM{
		Latitude:       37.42241,
		Longitude:      -122.08421,
		Elevation:      12.5,
		SpeedKPH:       53.2,
		HeadingDegrees: 271.0,
	}
	f.Data.TBSData.Header.TimestampMicros = 1_700_000_000_000_000
	for i := range f.Data.Cert {
		f.Data.Cert[i] = byte(i)
	}
	for i := 0; i < 70; i++ {
		f.Data.CertSignature[i] = byte(i + 1)
	}
	f.Data.CertSignatureLength = 70
	for i := 0; i < 64; i++ {
		f.SignatureFragment[i] = byte(i + 2)
	}
	return f
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec()
	original := sampleFragment()

	encoded, err := c.Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(encoded) != FragmentWireSize {
		t.Fatalf("Encode() produced %d bytes, want %d", len(encoded), FragmentWireSize)
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if decoded.VehicleID != original.VehicleID {
		t.Errorf("VehicleID = %d, want %d", decoded.VehicleID, original.VehicleID)
	}
	if decoded.SequenceNumber != original.SequenceNumber {
		t.Errorf("SequenceNumber = %d, want %d", decoded.SequenceNumber, original.SequenceNumber)
	}
	if decoded.Data.TBSData.BSM.Latitude != original.Data.TBSData.BSM.Latitude {
		t.Errorf("Latitude = %v, want %v", decoded.Data.TBSData.BSM.Latitude, original.Data.TBSData.BSM.Latitude)
	}
	if decoded.Data.TBSData.Header.TimestampMicros != original.Data.TBSData.Header.TimestampMicros {
		t.Errorf("TimestampMicros = %d, want %d", decoded.Data.TBSData.Header.TimestampMicros, original.Data.TBSData.Header.TimestampMicros)
	}
	if decoded.Data.Cert != original.Data.Cert {
		t.Error("Cert mismatch after round trip")
	}
	if decoded.Data.CertSignature != original.Data.CertSignature {
		t.Error("CertSignature mismatch after round trip")
	}
	if decoded.SignatureFragment != original.SignatureFragment {
		t.Error("SignatureFragment mismatch after round trip")
	}
	if decoded.Scheme != original.Scheme {
		t.Errorf("Scheme = %v, want %v", decoded.Scheme, original.Scheme)
	}
}

func TestCodecFalconMultiFragmentRoundTrip(t *testing.T) {
	c := NewCodec()
	f := sampleFragment()
	f.Scheme = constants.SchemeFalcon
	f.FragmentIndex = 1
	f.FragmentCount = 2
	f.SignatureBufferLength = 666
	f.SignatureOffset = 512
	f.FragmentLength = 154

	encoded, err := c.Encode(f)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.FragmentIndex != 1 || decoded.FragmentCount != 2 {
		t.Errorf("fragment indexing mismatch: index=%d count=%d", decoded.FragmentIndex, decoded.FragmentCount)
	}
	if decoded.SignatureOffset != 512 || decoded.FragmentLength != 154 {
		t.Errorf("offset/length mismatch: offset=%d length=%d", decoded.SignatureOffset, decoded.FragmentLength)
	}
}

func TestCodecDecodeTooShort(t *testing.T) {
	c := NewCodec()
	if _, err := c.Decode(make([]byte, 10)); err == nil {
		t.Fatal("Decode() on short buffer should error")
	}
}

func TestCodecEncodeRejectsInvalidFragment(t *testing.T) {
	c := NewCodec()
	f := sampleFragment()
	f.FragmentCount = 0

	if _, err := c.Encode(f); err == nil {
		t.Fatal("Encode() should reject a fragment with FragmentCount == 0")
	}
}

func TestFragmentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Fragment)
		wantErr bool
	}{
		{"valid", func(f *Fragment) {}, false},
		{"bad scheme", func(f *Fragment) { f.Scheme = constants.SchemeTag(9) }, true},
		{"index beyond count", func(f *Fragment) { f.FragmentIndex = 5; f.FragmentCount = 1 }, true},
		{"fragment too long", func(f *Fragment) { f.FragmentLength = constants.MaxFragment + 1 }, true},
		{"signature buffer too long", func(f *Fragment) { f.SignatureBufferLength = constants.MaxSignatureTotal + 1 }, true},
		{"offset overflows buffer", func(f *Fragment) { f.SignatureOffset = f.SignatureBufferLength + 1 }, true},
		{"cert signature too long", func(f *Fragment) { f.CertSignatureBufferLength = constants.MaxCertSignature + 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := sampleFragment()
			tt.mutate(f)
			err := f.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestEncodeTBSDataDeterministic(t *testing.T) {
	tbs := sampleFragment().Data.TBSData

	a := EncodeTBSData(tbs)
	b := EncodeTBSData(tbs)
	if len(a) != tbsDataSize {
		t.Fatalf("EncodeTBSData() produced %d bytes, want %d", len(a), tbsDataSize)
	}
	if string(a) != string(b) {
		t.Error("EncodeTBSData() is not deterministic for identical input")
	}

	tbs.BSM.Latitude++
	c := EncodeTBSData(tbs)
	if string(a) == string(c) {
		t.Error("EncodeTBSData() should change when the TBSData changes")
	}
}

func TestMessageKey(t *testing.T) {
	k1 := MessageKey(3, 100)
	k2 := MessageKey(3, 101)
	k3 := MessageKey(4, 100)

	if k1 == k2 {
		t.Error("different sequence numbers must produce different keys")
	}
	if k1 == k3 {
		t.Error("different vehicle IDs must produce different keys")
	}
	if MessageKey(3, 100) != k1 {
		t.Error("MessageKey must be deterministic")
	}
}
