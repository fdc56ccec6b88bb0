package config

import "testing"

func TestParseArgsValid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want RuntimeArgs
	}{
		{
			"transmitter no gui",
			[]string{"dsrc", "transmitter", "nogui"},
			RuntimeArgs{Band: BandDSRC, Role: RoleTransmitter, GUI: GUINone, Test: false},
		},
		{
			"receiver with tk gui",
			[]string{"cv2x", "receiver", "tkgui"},
			RuntimeArgs{Band: BandCV2X, Role: RoleReceiver, GUI: GUITk, Test: false},
		},
		{
			"test mode",
			[]string{"dsrc", "receiver", "webgui", "--test"},
			RuntimeArgs{Band: BandDSRC, Role: RoleReceiver, GUI: GUIWeb, Test: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseArgsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"dsrc", "transmitter"}},
		{"too many", []string{"dsrc", "transmitter", "nogui", "--test", "extra"}},
		{"bad band", []string{"wifi", "transmitter", "nogui"}},
		{"bad role", []string{"dsrc", "listener", "nogui"}},
		{"bad gui", []string{"dsrc", "transmitter", "guiapp"}},
		{"bad fourth arg", []string{"dsrc", "transmitter", "nogui", "--verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("ParseArgs() = nil error, want error")
			}
		})
	}
}
