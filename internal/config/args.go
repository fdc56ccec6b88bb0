package config

import (
	"fmt"

	verrors "github.com/twardokus/v2verifier/internal/errors"
)

// Band identifies the DSRC/C-V2X radio access technology named on the
// command line. The simulator does not behave differently between the
// two; the argument exists for fidelity with the original's CLI surface.
type Band string

const (
	BandDSRC Band = "dsrc"
	BandCV2X Band = "cv2x"
)

// Role selects whether this process transmits or receives.
type Role string

const (
	RoleTransmitter Role = "transmitter"
	RoleReceiver    Role = "receiver"
)

// GUIMode selects how (or whether) completed messages are forwarded to a
// visualization front end.
type GUIMode string

const (
	GUITk   GUIMode = "tkgui"
	GUIWeb  GUIMode = "webgui"
	GUINone GUIMode = "nogui"
)

// RuntimeArgs is the parsed, validated command line.
type RuntimeArgs struct {
	Band Band
	Role Role
	GUI  GUIMode
	Test bool
}

// usage mirrors the original simulator's usage string.
const usage = "usage: v2verifier {dsrc|cv2x} {transmitter|receiver} {tkgui|webgui|nogui} [--test]"

// ParseArgs validates and parses the process's positional arguments
// (excluding argv[0]), following the original simulator's exact grammar:
// exactly 3 positional arguments, plus an optional literal "--test" as a
// 4th (spec.md §9 "third argument positioning", resolved in DESIGN.md).
func ParseArgs(args []string) (RuntimeArgs, error) {
	if len(args) < 3 || len(args) > 4 {
		return RuntimeArgs{}, fmt.Errorf("%w: %s", verrors.ErrInvalidArgs, usage)
	}

	band := Band(args[0])
	if band != BandDSRC && band != BandCV2X {
		return RuntimeArgs{}, fmt.Errorf("%w: unknown band %q; %s", verrors.ErrInvalidArgs, args[0], usage)
	}

	role := Role(args[1])
	if role != RoleTransmitter && role != RoleReceiver {
		return RuntimeArgs{}, fmt.Errorf("%w: unknown role %q; %s", verrors.ErrInvalidArgs, args[1], usage)
	}

	gui := GUIMode(args[2])
	if gui != GUITk && gui != GUIWeb && gui != GUINone {
		return RuntimeArgs{}, fmt.Errorf("%w: unknown GUI mode %q; %s", verrors.ErrInvalidArgs, args[2], usage)
	}

	test := false
	if len(args) == 4 {
		if args[3] != "--test" {
			return RuntimeArgs{}, fmt.Errorf("%w: unknown argument %q; %s", verrors.ErrInvalidArgs, args[3], usage)
		}
		test = true
	}

	return RuntimeArgs{Band: band, Role: role, GUI: gui, Test: test}, nil
}

// Usage returns the CLI's usage string.
func Usage() string {
	return usage
}
