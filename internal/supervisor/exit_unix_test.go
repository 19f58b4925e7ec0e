//go:build !windows

package supervisor

import (
	"io"
	"syscall"
	"testing"
)

func TestParseSignal(t *testing.T) {
	t.Parallel()

	tests := map[string]syscall.Signal{
		"":        syscall.SIGKILL,
		"SIGKILL": syscall.SIGKILL,
		"term":    syscall.SIGTERM,
		" SIGINT": syscall.SIGINT,
		"15":      syscall.SIGTERM,
	}
	for input, want := range tests {
		got, err := ParseSignal(input)
		if err != nil {
			t.Fatalf("ParseSignal(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseSignal(%q)=%v, want %v", input, got, want)
		}
	}

	for _, input := range []string{"SIGNOPE", "0", "banana"} {
		if _, err := ParseSignal(input); err == nil {
			t.Fatalf("ParseSignal(%q) expected error", input)
		}
	}
}

func TestDecodeExitWithoutProcessState(t *testing.T) {
	t.Parallel()

	code, sig, abnormal := decodeExit(nil, nil)
	if code != nil || sig != nil {
		t.Fatalf("expected abnormal outcome only, got code=%v sig=%v", code, sig)
	}
	if abnormal == "" {
		t.Fatalf("expected abnormal reason")
	}
}

func TestSignalReportsDeliveryOnlyForLiveProcess(t *testing.T) {
	t.Parallel()

	h, err := NewRegistry().spawn(Spec{
		Program: "/bin/sh",
		Args:    []string{"-c", "exec sleep 30"},
	}, spawnConfig{stdout: io.Discard, stderr: io.Discard})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	delivered, err := h.signal(syscall.SIGKILL)
	if err != nil || !delivered {
		t.Fatalf("expected delivery to running process, got delivered=%v err=%v", delivered, err)
	}
	_ = h.cmd.Wait()

	delivered, err = h.signal(syscall.SIGKILL)
	if err != nil {
		t.Fatalf("signal after reap: %v", err)
	}
	if delivered {
		t.Fatalf("expected no delivery to reaped process")
	}
}
