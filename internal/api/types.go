package api

import (
	stdcontext "context"
	"errors"
	"time"

	"github.com/Paintersrp/procsup/internal/supervisor"
)

var (
	ErrProcessNotFound = supervisor.ErrNotFound
	ErrInvalidRequest  = errors.New("invalid request")
)

// CaptureOptions selects which streams are buffered instead of inherited.
type CaptureOptions struct {
	Stdout bool `json:"stdout"`
	Stderr bool `json:"stderr"`
}

// CreateRequest asks the supervisor to spawn a process.
type CreateRequest struct {
	Exec    string          `json:"exec"`
	Args    []string        `json:"args,omitempty"`
	Capture *CaptureOptions `json:"capture,omitempty"`
}

// Spec converts the request into a supervisor launch specification. A missing
// capture section inherits both streams.
func (r CreateRequest) Spec() supervisor.Spec {
	spec := supervisor.Spec{Program: r.Exec, Args: append([]string(nil), r.Args...)}
	if r.Capture != nil {
		if r.Capture.Stdout {
			spec.Stdout = supervisor.Capture
		}
		if r.Capture.Stderr {
			spec.Stderr = supervisor.Capture
		}
	}
	return spec
}

// CreateResponse identifies a newly spawned process.
type CreateResponse struct {
	ID  uint64 `json:"id"`
	PID int    `json:"pid"`
}

// Signal describes a terminating signal.
type Signal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// ExitReport is the wire form of supervisor.ExitReport. Output keys are
// omitted for inherited streams.
type ExitReport struct {
	ID        uint64    `json:"id"`
	PID       int       `json:"pid"`
	Exec      string    `json:"exec"`
	Args      []string  `json:"args"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Signal    *Signal   `json:"signal,omitempty"`
	Abnormal  string    `json:"abnormal,omitempty"`
	Success   bool      `json:"success"`
	Stdout    *string   `json:"stdout,omitempty"`
	Stderr    *string   `json:"stderr,omitempty"`
	StartedAt time.Time `json:"started_at"`
	ExitedAt  time.Time `json:"exited_at"`
}

// NewExitReport converts a supervisor report into its wire form.
func NewExitReport(r supervisor.ExitReport) ExitReport {
	out := ExitReport{
		ID:        uint64(r.ID),
		PID:       r.PID,
		Exec:      r.Program,
		Args:      nonNil(r.Args),
		Abnormal:  r.Abnormal,
		Success:   r.Success(),
		Stdout:    optionalString(r.Stdout),
		Stderr:    optionalString(r.Stderr),
		StartedAt: r.StartedAt,
		ExitedAt:  r.ExitedAt,
	}
	if r.ExitCode != nil {
		code := *r.ExitCode
		out.ExitCode = &code
	}
	if r.Signal != nil {
		out.Signal = &Signal{Number: r.Signal.Number, Name: r.Signal.Name}
	}
	return out
}

// ProcessStatus is a diagnostic snapshot of a process. Output holds the bytes
// collected so far for captured streams.
type ProcessStatus struct {
	ID        uint64         `json:"id"`
	PID       int            `json:"pid"`
	Exec      string         `json:"exec"`
	Args      []string       `json:"args"`
	State     string         `json:"state"`
	Capture   CaptureOptions `json:"capture"`
	StartedAt time.Time      `json:"started_at"`
	Stdout    *string        `json:"stdout,omitempty"`
	Stderr    *string        `json:"stderr,omitempty"`
	Exit      *ExitReport    `json:"exit,omitempty"`
}

// NewProcessStatus converts a supervisor status into its wire form.
func NewProcessStatus(st supervisor.Status) ProcessStatus {
	out := ProcessStatus{
		ID:    uint64(st.ID),
		PID:   st.PID,
		Exec:  st.Program,
		Args:  nonNil(st.Args),
		State: string(st.State),
		Capture: CaptureOptions{
			Stdout: st.Stdout == supervisor.Capture,
			Stderr: st.Stderr == supervisor.Capture,
		},
		StartedAt: st.StartedAt,
		Stdout:    optionalString(st.StdoutSoFar),
		Stderr:    optionalString(st.StderrSoFar),
	}
	if st.Report != nil {
		report := NewExitReport(*st.Report)
		out.Exit = &report
	}
	return out
}

// ProcessList wraps a list of process snapshots.
type ProcessList struct {
	Processes []ProcessStatus `json:"processes"`
}

// Controller exposes supervisor operations required by control servers.
type Controller interface {
	Create(stdcontext.Context, CreateRequest) (*CreateResponse, error)
	Wait(stdcontext.Context, uint64) (*ExitReport, error)
	Kill(stdcontext.Context, uint64) (*ExitReport, error)
	Status(stdcontext.Context, uint64) (*ProcessStatus, error)
	List(stdcontext.Context) (*ProcessList, error)
}

func optionalString(b []byte) *string {
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}
	return append([]string(nil), args...)
}
