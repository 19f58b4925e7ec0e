package api

import (
	stdcontext "context"
	"fmt"

	"github.com/Paintersrp/procsup/internal/supervisor"
)

// SupervisorController adapts a supervisor to the Controller interface.
type SupervisorController struct {
	sup *supervisor.Supervisor
}

// NewSupervisorController wraps sup. It returns nil when sup is nil.
func NewSupervisorController(sup *supervisor.Supervisor) *SupervisorController {
	if sup == nil {
		return nil
	}
	return &SupervisorController{sup: sup}
}

// Create spawns the requested process.
func (c *SupervisorController) Create(ctx stdcontext.Context, req CreateRequest) (*CreateResponse, error) {
	if req.Exec == "" {
		return nil, fmt.Errorf("%w: exec is required", ErrInvalidRequest)
	}
	h, err := c.sup.Create(ctx, req.Spec())
	if err != nil {
		return nil, err
	}
	return &CreateResponse{ID: uint64(h.ID()), PID: h.PID()}, nil
}

// Wait blocks until the process exits.
func (c *SupervisorController) Wait(ctx stdcontext.Context, id uint64) (*ExitReport, error) {
	report, err := c.sup.Wait(ctx, supervisor.ID(id))
	if err != nil {
		return nil, err
	}
	out := NewExitReport(report)
	return &out, nil
}

// Kill terminates the process and waits for it to exit.
func (c *SupervisorController) Kill(ctx stdcontext.Context, id uint64) (*ExitReport, error) {
	report, err := c.sup.Kill(ctx, supervisor.ID(id))
	if err != nil {
		return nil, err
	}
	out := NewExitReport(report)
	return &out, nil
}

// Status returns a snapshot of one process.
func (c *SupervisorController) Status(_ stdcontext.Context, id uint64) (*ProcessStatus, error) {
	h, err := c.sup.Lookup(supervisor.ID(id))
	if err != nil {
		return nil, err
	}
	out := NewProcessStatus(h.Status())
	return &out, nil
}

// List returns snapshots of every process in ID order.
func (c *SupervisorController) List(ctx stdcontext.Context) (*ProcessList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles := c.sup.List()
	out := &ProcessList{Processes: make([]ProcessStatus, 0, len(handles))}
	for _, h := range handles {
		out.Processes = append(out.Processes, NewProcessStatus(h.Status()))
	}
	return out, nil
}

// Ensure interface compliance at compile time.
var _ Controller = (*SupervisorController)(nil)
