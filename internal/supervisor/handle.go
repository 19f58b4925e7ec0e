package supervisor

import (
	"context"
	"os/exec"
	"time"
)

// Handle is a single supervised process. Handles are created only by the
// Registry and live for the registry's lifetime.
type Handle struct {
	id        ID
	spec      Spec
	pid       int
	startedAt time.Time
	cmd       *exec.Cmd

	stdout *Buffer
	stderr *Buffer

	// registered is closed once the ID has been assigned.
	registered chan struct{}

	// done is closed by the reaper after report is stored. report is
	// written exactly once and only read after done is closed.
	done   chan struct{}
	report ExitReport
}

// ID returns the supervisor-assigned identifier.
func (h *Handle) ID() ID { return h.id }

// PID returns the operating system process identifier.
func (h *Handle) PID() int { return h.pid }

// Spec returns a copy of the launch specification.
func (h *Handle) Spec() Spec {
	spec := h.spec
	spec.Args = append([]string(nil), h.spec.Args...)
	return spec
}

// Done returns a channel that is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	select {
	case <-h.done:
		return StateTerminated
	default:
		return StateRunning
	}
}

// Report returns the exit report once the process has terminated.
func (h *Handle) Report() (ExitReport, bool) {
	select {
	case <-h.done:
		return h.report, true
	default:
		return ExitReport{}, false
	}
}

// Status returns a snapshot of the handle including any output captured so
// far.
func (h *Handle) Status() Status {
	st := Status{
		ID:        h.id,
		PID:       h.pid,
		Program:   h.spec.Program,
		Args:      append([]string(nil), h.spec.Args...),
		Stdout:    h.spec.Stdout,
		Stderr:    h.spec.Stderr,
		State:     StateRunning,
		StartedAt: h.startedAt,
	}
	if report, ok := h.Report(); ok {
		st.State = StateTerminated
		st.Report = &report
		st.StdoutSoFar = report.Stdout
		st.StderrSoFar = report.Stderr
		return st
	}
	st.StdoutSoFar = h.stdout.Bytes()
	st.StderrSoFar = h.stderr.Bytes()
	return st
}

// wait blocks until the process has been reaped or ctx is done. It never
// mutates the handle.
func (h *Handle) wait(ctx context.Context) (ExitReport, error) {
	select {
	case <-h.done:
		return h.report, nil
	default:
	}
	select {
	case <-h.done:
		return h.report, nil
	case <-ctx.Done():
		return ExitReport{}, ctx.Err()
	}
}

// finish records the outcome of the single OS reap and releases waiters.
// It must be called exactly once, by the reaper goroutine.
func (h *Handle) finish(waitErr error) ExitReport {
	report := ExitReport{
		ID:        h.id,
		PID:       h.pid,
		Program:   h.spec.Program,
		Args:      append([]string(nil), h.spec.Args...),
		Stdout:    h.stdout.Bytes(),
		Stderr:    h.stderr.Bytes(),
		StartedAt: h.startedAt,
		ExitedAt:  time.Now(),
	}
	report.ExitCode, report.Signal, report.Abnormal = decodeExit(h.cmd.ProcessState, waitErr)
	h.report = report
	close(h.done)
	return report
}
