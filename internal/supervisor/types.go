package supervisor

import (
	"fmt"
	"strconv"
	"time"
)

// ID identifies a spawned process for the lifetime of the supervisor. IDs are
// never reused.
type ID uint64

// String renders the ID in decimal.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a decimal ID. Malformed input reports ErrNotFound, since no
// process could ever have been issued that ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, s)
	}
	return ID(v), nil
}

// CaptureMode controls what happens to a child's output stream.
type CaptureMode int

const (
	// Inherit forwards the stream to the supervisor's own stream.
	Inherit CaptureMode = iota
	// Capture buffers the stream in memory until the process exits.
	Capture
)

func (m CaptureMode) String() string {
	if m == Capture {
		return "captured"
	}
	return "inherited"
}

// Spec describes a process to launch.
type Spec struct {
	Program string
	Args    []string
	Stdout  CaptureMode
	Stderr  CaptureMode
}

// State is the lifecycle state of a handle.
type State string

const (
	StateRunning    State = "running"
	StateTerminated State = "terminated"
)

// Signal describes the signal that terminated a process.
type Signal struct {
	Number int
	Name   string
}

// ExitReport is the terminal outcome of a process. Exactly one of ExitCode,
// Signal and Abnormal is set. Stdout and Stderr are nil for inherited streams.
// The byte slices are shared between every caller that observes the report
// and must not be modified.
type ExitReport struct {
	ID        ID
	PID       int
	Program   string
	Args      []string
	ExitCode  *int
	Signal    *Signal
	Abnormal  string
	Stdout    []byte
	Stderr    []byte
	StartedAt time.Time
	ExitedAt  time.Time
}

// Success reports whether the process exited normally with code zero.
func (r ExitReport) Success() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// Outcome renders the exit outcome for logs.
func (r ExitReport) Outcome() string {
	switch {
	case r.ExitCode != nil:
		return fmt.Sprintf("exit code %d", *r.ExitCode)
	case r.Signal != nil:
		return fmt.Sprintf("signal %s (%d)", r.Signal.Name, r.Signal.Number)
	default:
		return "abnormal termination: " + r.Abnormal
	}
}

// Status is a point-in-time view of a handle. Output fields hold the bytes
// collected so far and are only complete once Report is set.
type Status struct {
	ID          ID
	PID         int
	Program     string
	Args        []string
	Stdout      CaptureMode
	Stderr      CaptureMode
	State       State
	StartedAt   time.Time
	Report      *ExitReport
	StdoutSoFar []byte
	StderrSoFar []byte
}
