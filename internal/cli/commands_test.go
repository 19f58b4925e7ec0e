package cli

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Paintersrp/procsup/internal/api"
	apihttp "github.com/Paintersrp/procsup/internal/api/http"
	"github.com/Paintersrp/procsup/internal/supervisor"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func startTestServer(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sup := supervisor.New()
	server, err := apihttp.NewServer(apihttp.Config{Controller: api.NewSupervisorController(sup)})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		for _, h := range sup.List() {
			if h.State() == supervisor.StateRunning {
				_, _ = sup.Kill(stdcontext.Background(), h.ID())
			}
		}
		ts.Close()
	})
	return ts.URL
}

func runCLI(t *testing.T, addr string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--addr", addr}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunWaitPrintsCapturedOutput(t *testing.T) {
	addr := startTestServer(t)

	stdout, stderr, err := runCLI(t, addr, "run", "--wait", "--capture-stdout", "--capture-stderr", "--",
		"sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr)
	}
	if stdout != "out\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if stderr != "err\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestRunWaitReportsFailure(t *testing.T) {
	addr := startTestServer(t)

	_, _, err := runCLI(t, addr, "run", "--wait", "--", "sh", "-c", "exit 4")
	var exitErr *exitReportError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit report error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit code 4") {
		t.Fatalf("unexpected error message %q", err)
	}
}

func TestRunThenKillAndPs(t *testing.T) {
	addr := startTestServer(t)

	stdout, _, err := runCLI(t, addr, "run", "sleep", "30")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	id := strings.TrimSpace(stdout)
	if id != "1" {
		t.Fatalf("expected id 1, got %q", id)
	}

	stdout, _, err = runCLI(t, addr, "ps")
	if err != nil {
		t.Fatalf("ps: %v", err)
	}
	if !strings.Contains(stdout, "running") || !strings.Contains(stdout, "sleep 30") || !strings.Contains(stdout, "inherit") {
		t.Fatalf("unexpected ps output:\n%s", stdout)
	}

	stdout, stderr, err := runCLI(t, addr, "kill", id)
	if err != nil {
		t.Fatalf("kill: %v", err)
	}
	if stdout != "" {
		t.Fatalf("expected no output for inherited streams, got %q", stdout)
	}
	if !strings.Contains(stderr, "SIGKILL") {
		t.Fatalf("expected signal in kill summary, got %q", stderr)
	}

	stdout, _, err = runCLI(t, addr, "wait", "--json", id)
	if err == nil {
		t.Fatalf("expected wait on killed process to report failure")
	}
	var report api.ExitReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Signal == nil || report.Signal.Name != "SIGKILL" {
		t.Fatalf("expected SIGKILL report, got %+v", report)
	}
}

func TestWaitUnknownProcess(t *testing.T) {
	addr := startTestServer(t)

	_, _, err := runCLI(t, addr, "wait", "9")
	if err == nil || !strings.Contains(err.Error(), "process_not_found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	_, _, err = runCLI(t, addr, "wait", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid process id") {
		t.Fatalf("expected id parse error, got %v", err)
	}
}

func TestPsReportsCapturedSizes(t *testing.T) {
	addr := startTestServer(t)

	if _, _, err := runCLI(t, addr, "run", "--wait", "--capture-stdout", "--", "printf", "12345"); err != nil {
		t.Fatalf("run: %v", err)
	}
	stdout, _, err := runCLI(t, addr, "ps")
	if err != nil {
		t.Fatalf("ps: %v", err)
	}
	if !strings.Contains(stdout, "5B") || !strings.Contains(stdout, "exit 0") {
		t.Fatalf("unexpected ps output:\n%s", stdout)
	}
}
