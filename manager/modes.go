package manager

import (
	"fmt"
	"strings"
)

// AuthRetryMode controls what openvpn does after an authentication failure.
type AuthRetryMode string

const (
	AuthRetryNone       AuthRetryMode = "none"
	AuthRetryInteract   AuthRetryMode = "interact"
	AuthRetryNoInteract AuthRetryMode = "nointeract"
)

// HoldMode is the argument to the hold command. HoldQuery only reports the
// current hold flag.
type HoldMode string

const (
	HoldQuery   HoldMode = ""
	HoldOn      HoldMode = "on"
	HoldOff     HoldMode = "off"
	HoldRelease HoldMode = "release"
)

// Signal is a signal openvpn can be asked to raise on itself.
type Signal string

const (
	SignalHUP  Signal = "SIGHUP"
	SignalTERM Signal = "SIGTERM"
	SignalUSR1 Signal = "SIGUSR1"
	SignalUSR2 Signal = "SIGUSR2"
)

// ParseSignal accepts "SIGHUP", "sighup" or "HUP".
func ParseSignal(s string) (Signal, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}

	switch sig := Signal(name); sig {
	case SignalHUP, SignalTERM, SignalUSR1, SignalUSR2:
		return sig, nil

	default:
		return "", fmt.Errorf("Unsupported signal '%s'", s)
	}
}
