package escalate

import (
	"fmt"
	"strings"
	"syscall"
)

// Signal is a termination signal the supervisor is allowed to deliver.
type Signal syscall.Signal

const (
	SignalTerm Signal = Signal(syscall.SIGTERM)
	SignalKill Signal = Signal(syscall.SIGKILL)
	SignalInt  Signal = Signal(syscall.SIGINT)
	SignalHup  Signal = Signal(syscall.SIGHUP)
)

var signalNames = map[Signal]string{
	SignalTerm: "SIGTERM",
	SignalKill: "SIGKILL",
	SignalInt:  "SIGINT",
	SignalHup:  "SIGHUP",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// ParseSignal resolves a signal name with or without the SIG prefix,
// case-insensitively. Only the supervised signal set is accepted.
func ParseSignal(name string) (Signal, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return SignalTerm, nil
	}
	if !strings.HasPrefix(trimmed, "SIG") {
		trimmed = "SIG" + trimmed
	}
	for sig, sigName := range signalNames {
		if sigName == trimmed {
			return sig, nil
		}
	}
	return 0, fmt.Errorf("unsupported signal %q (expected SIGTERM, SIGKILL, SIGINT or SIGHUP)", name)
}
