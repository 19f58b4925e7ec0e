package api

import (
	stdcontext "context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/Paintersrp/procsup/internal/supervisor"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func newTestController(t *testing.T) *SupervisorController {
	t.Helper()
	ctrl := NewSupervisorController(supervisor.New())
	t.Cleanup(func() {
		list, err := ctrl.List(stdcontext.Background())
		if err != nil {
			return
		}
		for _, p := range list.Processes {
			if p.State == string(supervisor.StateRunning) {
				_, _ = ctrl.Kill(stdcontext.Background(), p.ID)
			}
		}
	})
	return ctrl
}

func TestNewSupervisorControllerNil(t *testing.T) {
	if ctrl := NewSupervisorController(nil); ctrl != nil {
		t.Fatalf("expected nil controller for nil supervisor")
	}
}

func TestControllerCreateRejectsEmptyExec(t *testing.T) {
	ctrl := newTestController(t)
	_, err := ctrl.Create(stdcontext.Background(), CreateRequest{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestControllerCreateAndWait(t *testing.T) {
	skipOnWindows(t)
	ctrl := newTestController(t)
	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
	defer cancel()

	created, err := ctrl.Create(ctx, CreateRequest{
		Exec:    "sh",
		Args:    []string{"-c", "printf out; printf err >&2; exit 2"},
		Capture: &CaptureOptions{Stdout: true},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.PID <= 0 {
		t.Fatalf("unexpected create response %+v", created)
	}

	report, err := ctrl.Wait(ctx, created.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if report.Success {
		t.Fatalf("expected unsuccessful report")
	}
	if report.ExitCode == nil || *report.ExitCode != 2 {
		t.Fatalf("expected exit code 2, got %+v", report.ExitCode)
	}
	if report.Stdout == nil || *report.Stdout != "out" {
		t.Fatalf("expected captured stdout, got %v", report.Stdout)
	}
	if report.Stderr != nil {
		t.Fatalf("expected inherited stderr to be omitted, got %q", *report.Stderr)
	}

	status, err := ctrl.Status(ctx, created.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.State != string(supervisor.StateTerminated) || status.Exit == nil {
		t.Fatalf("expected terminated status with exit, got %+v", status)
	}
	if !status.Capture.Stdout || status.Capture.Stderr {
		t.Fatalf("unexpected capture flags %+v", status.Capture)
	}
}

func TestControllerKill(t *testing.T) {
	skipOnWindows(t)
	ctrl := newTestController(t)
	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
	defer cancel()

	created, err := ctrl.Create(ctx, CreateRequest{Exec: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	report, err := ctrl.Kill(ctx, created.ID)
	if err != nil {
		t.Fatalf("kill: %v", err)
	}
	if report.Signal == nil || report.Signal.Name != "SIGKILL" {
		t.Fatalf("expected SIGKILL report, got %+v", report)
	}
	if report.ExitCode != nil {
		t.Fatalf("expected no exit code for signaled process, got %d", *report.ExitCode)
	}
}

func TestControllerUnknownProcess(t *testing.T) {
	ctrl := newTestController(t)
	ctx := stdcontext.Background()

	if _, err := ctrl.Wait(ctx, 42); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("wait: expected ErrProcessNotFound, got %v", err)
	}
	if _, err := ctrl.Kill(ctx, 42); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("kill: expected ErrProcessNotFound, got %v", err)
	}
	if _, err := ctrl.Status(ctx, 42); !errors.Is(err, ErrProcessNotFound) {
		t.Fatalf("status: expected ErrProcessNotFound, got %v", err)
	}
}

func TestControllerListOrdered(t *testing.T) {
	skipOnWindows(t)
	ctrl := newTestController(t)
	ctx := stdcontext.Background()

	for i := 0; i < 3; i++ {
		if _, err := ctrl.Create(ctx, CreateRequest{Exec: "true"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, err := ctrl.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Processes) != 3 {
		t.Fatalf("expected 3 processes, got %d", len(list.Processes))
	}
	for i, p := range list.Processes {
		if p.ID != uint64(i+1) {
			t.Fatalf("expected id %d at index %d, got %d", i+1, i, p.ID)
		}
		if p.Args == nil {
			t.Fatalf("expected non-nil args slice")
		}
	}
}
