package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"sync"
	"time"
)

// Registry maps IDs to handles. Handles are inserted only after their
// process has started and are never removed.
type Registry struct {
	mu      sync.RWMutex
	last    ID
	handles map[ID]*Handle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[ID]*Handle)}
}

type spawnConfig struct {
	stdout    io.Writer
	stderr    io.Writer
	waitDelay time.Duration
	warnAt    int64
	onWarn    func(h *Handle, stream string, size int64)
}

// spawn starts the process described by spec and registers it. The ID is
// allocated only once the start has succeeded.
func (r *Registry) spawn(spec Spec, cfg spawnConfig) (*Handle, error) {
	if spec.Program == "" {
		return nil, &SpawnError{Program: spec.Program, Err: errors.New("program is required")}
	}

	h := &Handle{
		spec: Spec{
			Program: spec.Program,
			Args:    append([]string(nil), spec.Args...),
			Stdout:  spec.Stdout,
			Stderr:  spec.Stderr,
		},
		registered: make(chan struct{}),
		done:       make(chan struct{}),
	}

	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.WaitDelay = cfg.waitDelay
	if spec.Stdout == Capture {
		h.stdout = newBuffer(cfg.warnAt, r.warnFunc(h, "stdout", cfg))
		cmd.Stdout = h.stdout
	} else {
		cmd.Stdout = cfg.stdout
	}
	if spec.Stderr == Capture {
		h.stderr = newBuffer(cfg.warnAt, r.warnFunc(h, "stderr", cfg))
		cmd.Stderr = h.stderr
	} else {
		cmd.Stderr = cfg.stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Program: spec.Program, Err: err}
	}
	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()

	r.mu.Lock()
	r.last++
	h.id = r.last
	r.handles[h.id] = h
	r.mu.Unlock()
	close(h.registered)

	return h, nil
}

func (r *Registry) warnFunc(h *Handle, stream string, cfg spawnConfig) func(int64) {
	if cfg.onWarn == nil {
		return nil
	}
	return func(size int64) {
		go func() {
			<-h.registered
			cfg.onWarn(h, stream, size)
		}()
	}
}

// Lookup returns the handle registered under id.
func (r *Registry) Lookup(id ID) (*Handle, error) {
	r.mu.RLock()
	h := r.handles[id]
	r.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}

// List returns every registered handle in ID order.
func (r *Registry) List() []*Handle {
	r.mu.RLock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len reports the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
