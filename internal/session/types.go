package session

import (
	"time"

	"github.com/smilejp/cc-anywhere-windows/internal/shared/id"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusStarting     Status = "starting"
	StatusActive       Status = "active"
	StatusIdle         Status = "idle"
	StatusWaitingInput Status = "waiting_input"
	StatusStopped      Status = "stopped"
	StatusError        Status = "error"
)

// Session is one supervised interactive terminal session.
type Session struct {
	ID           id.SessionID `json:"id"`
	Name         string       `json:"name"`
	WorkingDir   string       `json:"working_dir"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
	PaneID       int          `json:"pane_id"`

	// Worktree fields are set when the session runs in an isolated git
	// worktree checkout.
	WorktreePath    string `json:"worktree_path,omitempty"`
	WorktreeBranch  string `json:"worktree_branch,omitempty"`
	CleanupWorktree bool   `json:"-"`
}

// touch updates the last-activity timestamp.
func (s *Session) touch() {
	s.LastActivity = time.Now()
}

// snapshot returns a point-in-time copy safe to use outside the registry
// lock. The live instance never leaves the manager.
func (s *Session) snapshot() *Session {
	copied := *s
	return &copied
}

// Output is one capture of a session's rendered terminal content.
type Output struct {
	SessionID      id.SessionID `json:"session_id"`
	Content        string       `json:"content"`
	Timestamp      time.Time    `json:"timestamp"`
	IsWaitingInput bool         `json:"is_waiting_input"`
}
