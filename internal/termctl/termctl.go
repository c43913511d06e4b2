// Package termctl defines the process-control boundary: the minimal set of
// operations the session registry needs from a terminal host. Backends
// (wezterm CLI, local PTY) implement Controller; the registry never talks to
// a terminal host directly.
package termctl

import (
	"context"
	"fmt"
)

// PaneInfo describes one pane known to the terminal host.
type PaneInfo struct {
	PaneID    int    `json:"pane_id"`
	Workspace string `json:"workspace"`
	CWD       string `json:"cwd"`
	Title     string `json:"title"`
}

// Controller is the process-control service consumed by the session registry.
// All calls are request/response with a bounded timeout enforced by the
// backend; failures surface as *Error.
type Controller interface {
	// Spawn starts a new pane running argv in cwd, tagged with workspace,
	// and returns the host's opaque pane ID.
	Spawn(ctx context.Context, workspace, cwd string, argv []string) (int, error)

	// Kill terminates a pane.
	Kill(ctx context.Context, paneID int) error

	// SendText writes text to a pane's input without paste bracketing.
	SendText(ctx context.Context, paneID int, text string) error

	// GetText returns the last maxLines of rendered pane content,
	// preserving escape sequences when withEscapes is set.
	GetText(ctx context.Context, paneID int, maxLines int, withEscapes bool) (string, error)

	// List returns every pane the host knows about.
	List(ctx context.Context) ([]PaneInfo, error)
}

// Error is a process-control failure: non-zero exit, timeout, or a pane the
// host no longer knows. It carries a human-readable detail string because
// these failures are typically environmental and end up in user-facing
// messages.
type Error struct {
	Op     string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("process control %s: %s", e.Op, e.Detail)
}

// NewError builds a process-control error for one operation.
func NewError(op, detail string) *Error {
	return &Error{Op: op, Detail: detail}
}
