//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultKillSignal is delivered by Kill unless configured otherwise.
const DefaultKillSignal = syscall.SIGKILL

// ParseSignal resolves a signal by name ("SIGTERM", "term") or number.
func ParseSignal(name string) (syscall.Signal, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return DefaultKillSignal, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if unix.SignalName(syscall.Signal(n)) == "" {
			return 0, fmt.Errorf("unknown signal %q", name)
		}
		return syscall.Signal(n), nil
	}
	if !strings.HasPrefix(trimmed, "SIG") {
		trimmed = "SIG" + trimmed
	}
	sig := unix.SignalNum(trimmed)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}

func signalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}

// decodeExit converts the single OS reap result into an exit outcome. The
// wait status is the only source of truth; a requested kill is never
// inferred.
func decodeExit(state *os.ProcessState, waitErr error) (*int, *Signal, string) {
	if state == nil {
		if waitErr == nil {
			waitErr = errors.New("no exit status reported")
		}
		return nil, nil, waitErr.Error()
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		switch {
		case ws.Signaled():
			sig := ws.Signal()
			return nil, &Signal{Number: int(sig), Name: signalName(sig)}, ""
		case ws.Exited():
			code := ws.ExitStatus()
			return &code, nil, ""
		}
	}
	if code := state.ExitCode(); code >= 0 {
		return &code, nil, ""
	}
	return nil, nil, state.String()
}

// signal reports whether sig reached a live process. A process that has
// already exited is not an error.
func (h *Handle) signal(sig syscall.Signal) (bool, error) {
	err := h.cmd.Process.Signal(sig)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrProcessDone):
		return false, nil
	default:
		return false, fmt.Errorf("signal process %s (pid %d): %w", h.id, h.pid, err)
	}
}
