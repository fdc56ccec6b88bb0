package transport

import (
	"testing"
	"time"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/wire"
)

func sampleFragment() *wire.Fragment {
	f := &wire.Fragment{
		VehicleID:                7,
		SequenceNumber:           3,
		LLCDsapSsap:              constants.LLCDsapSsap,
		LLCControl:               constants.LLCControl,
		LLCType:                  constants.LLCType,
		WSMPNSubtypeOptVersion:   constants.WSMPNSubtypeOptVersion,
		WSMPNTPID:                constants.WSMPNTPID,
		WSMPTHeaderLengthAndPSID: constants.WSMPTHeaderLengthAndPSID,
		WSMPTLength:              constants.WSMPTLength,
		Scheme:                   constants.SchemeECDSA,
		FragmentIndex:            0,
		FragmentCount:            1,
		SignatureBufferLength:    10,
		FragmentLength:           10,
	}
	f.Data.TBSData.BSM.Latitude = 42.0
	return f
}

func TestSendReceiveRoundTrip(t *testing.T) {
	receiver, err := Receiver(0)
	if err != nil {
		t.Fatalf("Receiver() error = %v", err)
	}
	defer receiver.Close()

	sender, err := Sender(receiver.LocalAddr().String())
	if err != nil {
		t.Fatalf("Sender() error = %v", err)
	}
	defer sender.Close()

	original := sampleFragment()
	if err := sender.Send(original); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	receiver.SetReadTimeout(2 * time.Second)
	got, _, _, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got.VehicleID != original.VehicleID {
		t.Errorf("VehicleID = %d, want %d", got.VehicleID, original.VehicleID)
	}
	if got.Data.TBSData.BSM.Latitude != original.Data.TBSData.BSM.Latitude {
		t.Errorf("Latitude = %v, want %v", got.Data.TBSData.BSM.Latitude, original.Data.TBSData.BSM.Latitude)
	}
}

func TestReceiveTimeout(t *testing.T) {
	receiver, err := Receiver(0)
	if err != nil {
		t.Fatalf("Receiver() error = %v", err)
	}
	defer receiver.Close()

	receiver.SetReadTimeout(50 * time.Millisecond)
	if _, _, _, err := receiver.Receive(); err == nil {
		t.Fatal("Receive() with nothing sent should time out")
	}
}
