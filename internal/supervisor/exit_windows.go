//go:build windows

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
)

// DefaultKillSignal is reported for symmetry with Unix; Windows processes are
// always terminated forcibly.
const DefaultKillSignal = syscall.SIGKILL

// ParseSignal accepts only forced termination on Windows.
func ParseSignal(name string) (syscall.Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "SIGKILL", "KILL", "9":
		return DefaultKillSignal, nil
	default:
		return 0, fmt.Errorf("signal %q is not supported on windows", name)
	}
}

func decodeExit(state *os.ProcessState, waitErr error) (*int, *Signal, string) {
	if state == nil {
		if waitErr == nil {
			waitErr = errors.New("no exit status reported")
		}
		return nil, nil, waitErr.Error()
	}
	code := state.ExitCode()
	return &code, nil, ""
}

func (h *Handle) signal(syscall.Signal) (bool, error) {
	err := h.cmd.Process.Kill()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrProcessDone):
		return false, nil
	default:
		return false, fmt.Errorf("kill process %s (pid %d): %w", h.id, h.pid, err)
	}
}

func signalName(sig syscall.Signal) string {
	return sig.String()
}
