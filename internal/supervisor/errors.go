package supervisor

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an ID that was never issued by this supervisor.
var ErrNotFound = errors.New("process not found")

// SpawnError reports a process that could not be started. No ID is allocated
// for it.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
