// Package supervisor owns the processes spawned on behalf of callers.
//
// A Registry assigns every successfully started process a sequential ID and
// keeps its Handle for the lifetime of the supervisor, so repeated waits after
// exit return the same report. Each Handle is reaped by exactly one goroutine;
// waiters block on a channel that is closed once the exit report is stored.
//
// Kill delivers a signal only to the direct child. On Windows the process is
// terminated forcibly because no signal delivery exists. Descendants that
// inherit captured pipes do not hold up a wait: once the direct child is
// reaped, pipes are drained for at most the configured I/O wait delay.
package supervisor
