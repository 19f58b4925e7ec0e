package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Paintersrp/procsup/internal/metrics"
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithKillSignal sets the signal delivered by Kill.
func WithKillSignal(sig syscall.Signal) Option {
	return func(s *Supervisor) {
		if sig != 0 {
			s.killSignal = sig
		}
	}
}

// DefaultWaitDelay bounds how long the reaper drains captured pipes after the
// direct child has exited.
const DefaultWaitDelay = 2 * time.Second

// WithWaitDelay bounds how long the reaper waits for captured pipes to close
// after the process has exited. Descendants still holding a pipe are cut off
// once it elapses; bytes read until then are kept. Non-positive values keep
// DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.waitDelay = d
		}
	}
}

// WithCaptureWarnThreshold emits a capture_threshold event the first time a
// captured stream grows past n bytes. Output is never truncated.
func WithCaptureWarnThreshold(n int64) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.warnAt = n
		}
	}
}

// WithEvents delivers lifecycle events to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Supervisor) {
		s.events = sink
	}
}

// WithInheritedOutput overrides the streams inherited by children that do not
// capture their output. It defaults to the supervisor's own stdout/stderr.
func WithInheritedOutput(stdout, stderr io.Writer) Option {
	return func(s *Supervisor) {
		if stdout != nil {
			s.stdout = stdout
		}
		if stderr != nil {
			s.stderr = stderr
		}
	}
}

// WithRegistry shares an existing registry.
func WithRegistry(r *Registry) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.registry = r
		}
	}
}

// Supervisor spawns processes and resolves wait and kill calls against the
// registry.
type Supervisor struct {
	registry   *Registry
	killSignal syscall.Signal
	waitDelay  time.Duration
	warnAt     int64
	events     EventSink
	stdout     io.Writer
	stderr     io.Writer
}

// New constructs a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		killSignal: DefaultKillSignal,
		waitDelay:  DefaultWaitDelay,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Registry exposes the underlying registry.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Create starts a process and returns its handle. ctx only bounds the spawn;
// the process outlives it.
func (s *Supervisor) Create(ctx context.Context, spec Spec) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := s.registry.spawn(spec, spawnConfig{
		stdout:    s.stdout,
		stderr:    s.stderr,
		waitDelay: s.waitDelay,
		warnAt:    s.warnAt,
		onWarn:    s.captureThreshold,
	})
	if err != nil {
		metrics.IncrementSpawnFailures()
		s.emit(nil, EventTypeSpawnFailed, "error", err.Error(), err)
		return nil, err
	}
	metrics.ProcessSpawned()
	s.emit(h, EventTypeSpawned, "info", describe(h.spec), nil)

	go s.reap(h)
	return h, nil
}

// reap performs the single OS wait for h and publishes the outcome.
func (s *Supervisor) reap(h *Handle) {
	err := h.cmd.Wait()
	report := h.finish(err)

	metrics.ProcessExited(outcomeLabel(report), report.ExitedAt.Sub(report.StartedAt))
	if report.Stdout != nil {
		metrics.ObserveCapturedBytes("stdout", len(report.Stdout))
	}
	if report.Stderr != nil {
		metrics.ObserveCapturedBytes("stderr", len(report.Stderr))
	}
	level := "info"
	if !report.Success() {
		level = "warn"
	}
	s.emit(h, EventTypeExited, level, report.Outcome(), nil)
}

func (s *Supervisor) captureThreshold(h *Handle, stream string, size int64) {
	s.emit(h, EventTypeCaptureThreshold, "warn",
		fmt.Sprintf("captured %s exceeded %d bytes (now %d)", stream, s.warnAt, size), nil)
}

// Lookup returns the handle for id.
func (s *Supervisor) Lookup(id ID) (*Handle, error) {
	return s.registry.Lookup(id)
}

// List returns every handle in ID order.
func (s *Supervisor) List() []*Handle {
	return s.registry.List()
}

// Wait blocks until the process identified by id has terminated and returns
// its report. Every caller observes the same report. Cancelling ctx abandons
// the wait without affecting the process.
func (s *Supervisor) Wait(ctx context.Context, id ID) (ExitReport, error) {
	h, err := s.registry.Lookup(id)
	if err != nil {
		return ExitReport{}, err
	}
	return h.wait(ctx)
}

// Kill requests termination of the process identified by id and then waits
// for it exactly like Wait. Killing a terminated process returns its stored
// report unchanged.
func (s *Supervisor) Kill(ctx context.Context, id ID) (ExitReport, error) {
	h, err := s.registry.Lookup(id)
	if err != nil {
		return ExitReport{}, err
	}
	if report, ok := h.Report(); ok {
		return report, nil
	}

	delivered, err := h.signal(s.killSignal)
	if err != nil {
		return ExitReport{}, err
	}
	if delivered {
		metrics.IncrementKillRequests()
		s.emit(h, EventTypeKillRequested, "info", "signal "+signalName(s.killSignal), nil)
	}
	return h.wait(ctx)
}

func outcomeLabel(r ExitReport) string {
	switch {
	case r.ExitCode != nil:
		return "exited"
	case r.Signal != nil:
		return "signaled"
	default:
		return "abnormal"
	}
}

func describe(spec Spec) string {
	parts := append([]string{spec.Program}, spec.Args...)
	return fmt.Sprintf("%s (stdout=%s, stderr=%s)", strings.Join(parts, " "), spec.Stdout, spec.Stderr)
}
