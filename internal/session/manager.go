// Package session is the supervision core: it owns the registry of live
// sessions, their lifecycle state machine, and output capture with
// change-detection on top of a process-control backend.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/ansi"
	"github.com/smilejp/cc-anywhere-windows/internal/gitutil"
	"github.com/smilejp/cc-anywhere-windows/internal/history"
	"github.com/smilejp/cc-anywhere-windows/internal/namegen"
	"github.com/smilejp/cc-anywhere-windows/internal/shared/hash"
	"github.com/smilejp/cc-anywhere-windows/internal/shared/id"
	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
)

// Options configures the session manager.
type Options struct {
	// Command is the interactive CLI launched in every pane.
	Command string
	// Args are passed to Command.
	Args []string
	// DefaultWorkDir is used when a create request names no directory.
	DefaultWorkDir string
	// Workspace tags every spawned pane so unmanaged panes can be
	// discovered and imported later.
	Workspace string
	// MaxSessions caps concurrent sessions.
	MaxSessions int
	// SettleDelay is how long a new session stays in StatusStarting before
	// it is considered active.
	SettleDelay time.Duration
	// ReadLines is the default capture depth for output reads.
	ReadLines int
	// TailLines bounds how many trailing lines a change delta carries.
	TailLines int
}

func (o Options) withDefaults() Options {
	if o.Command == "" {
		o.Command = "claude"
	}
	if o.Args == nil {
		o.Args = []string{"--dangerously-skip-permissions"}
	}
	if o.DefaultWorkDir == "" {
		o.DefaultWorkDir = "~"
	}
	if o.Workspace == "" {
		o.Workspace = "cc-anywhere"
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = 10
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = time.Second
	}
	if o.ReadLines <= 0 {
		o.ReadLines = 100
	}
	if o.TailLines <= 0 {
		o.TailLines = 50
	}
	return o
}

// CreateOptions describes one session to create.
type CreateOptions struct {
	// Name must be unique among live sessions. Empty generates a memorable
	// name.
	Name string
	// WorkingDir overrides the manager default.
	WorkingDir string
	// CreateWorktree provisions an isolated git worktree when WorkingDir is
	// a repository. Provisioning is best-effort: on failure the session
	// starts in WorkingDir itself.
	CreateWorktree bool
	// WorktreeBranch overrides the generated branch name.
	WorktreeBranch string
	// KeepWorktree leaves the worktree checkout behind on destroy.
	KeepWorktree bool
}

// Manager is the session registry. All exported methods are safe for
// concurrent use; the table and per-session fields are guarded by one mutex.
type Manager struct {
	opts    Options
	ctrl    termctl.Controller
	history *history.Logger
	logger  *zap.Logger

	mu          sync.RWMutex
	sessions    map[id.SessionID]*Session
	outputCache map[id.SessionID]string
}

// NewManager builds a manager over the given process-control backend. The
// history logger may be nil to disable history.
func NewManager(ctrl termctl.Controller, hist *history.Logger, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:        opts.withDefaults(),
		ctrl:        ctrl,
		history:     hist,
		logger:      logger,
		sessions:    make(map[id.SessionID]*Session),
		outputCache: make(map[id.SessionID]string),
	}
}

// Create spawns a new session. The returned session is StatusActive unless
// the settle delay was cut short by ctx.
func (m *Manager) Create(ctx context.Context, req CreateOptions) (*Session, error) {
	m.mu.Lock()
	if req.Name == "" {
		req.Name = namegen.GenerateUnique(m.namesLocked())
	}
	if s := m.byNameLocked(req.Name); s != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, req.Name)
	}
	if len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (%d)", ErrCapacity, m.opts.MaxSessions)
	}
	m.mu.Unlock()

	workDir := req.WorkingDir
	if workDir == "" {
		workDir = m.opts.DefaultWorkDir
	}
	workDir = expandHome(workDir)

	var worktreePath, worktreeBranch string
	if req.CreateWorktree {
		if gitutil.IsRepo(workDir) {
			branch := req.WorktreeBranch
			if branch == "" {
				branch = gitutil.GenerateBranchName(req.Name)
			}
			path, err := gitutil.CreateWorktree(workDir, branch, "")
			if err != nil {
				m.logger.Warn("failed to create worktree, continuing without",
					zap.String("branch", branch), zap.Error(err))
			} else {
				worktreePath = path
				worktreeBranch = branch
				workDir = path
				m.logger.Info("created worktree",
					zap.String("path", path), zap.String("branch", branch))
			}
		} else {
			m.logger.Warn("worktree requested outside a git repository",
				zap.String("working_dir", workDir))
		}
	}

	argv := append([]string{m.opts.Command}, m.opts.Args...)
	paneID, err := m.ctrl.Spawn(ctx, m.opts.Workspace, workDir, argv)
	if err != nil {
		if worktreePath != "" {
			gitutil.RemoveWorktree(worktreePath, true)
		}
		return nil, fmt.Errorf("spawn session %q: %w", req.Name, err)
	}

	now := time.Now()
	session := &Session{
		ID:              id.NewSessionID(),
		Name:            req.Name,
		WorkingDir:      workDir,
		Status:          StatusStarting,
		CreatedAt:       now,
		LastActivity:    now,
		PaneID:          paneID,
		WorktreePath:    worktreePath,
		WorktreeBranch:  worktreeBranch,
		CleanupWorktree: !req.KeepWorktree,
	}

	// Re-check under the lock: a concurrent create may have won the name or
	// the last slot while we were spawning.
	m.mu.Lock()
	var insertErr error
	if dup := m.byNameLocked(req.Name); dup != nil {
		insertErr = fmt.Errorf("%w: %q", ErrDuplicateName, req.Name)
	} else if len(m.sessions) >= m.opts.MaxSessions {
		insertErr = fmt.Errorf("%w (%d)", ErrCapacity, m.opts.MaxSessions)
	}
	if insertErr != nil {
		m.mu.Unlock()
		m.ctrl.Kill(ctx, paneID)
		if worktreePath != "" {
			gitutil.RemoveWorktree(worktreePath, true)
		}
		return nil, insertErr
	}
	m.sessions[session.ID] = session
	m.outputCache[session.ID] = ""
	m.mu.Unlock()

	m.logger.Info("created session",
		zap.String("session_id", session.ID.String()),
		zap.String("name", session.Name),
		zap.Int("pane_id", paneID))

	if m.history != nil {
		msg := fmt.Sprintf("Session created: %s (working_dir: %s)", session.Name, workDir)
		if worktreeBranch != "" {
			msg += fmt.Sprintf(" (worktree: %s)", worktreeBranch)
		}
		m.history.LogSystem(session.ID.String(), msg)
	}

	// Give the command a moment to start before reporting the session
	// active.
	select {
	case <-time.After(m.opts.SettleDelay):
	case <-ctx.Done():
	}

	m.mu.Lock()
	if s, ok := m.sessions[session.ID]; ok && s.Status == StatusStarting {
		s.Status = StatusActive
	}
	snap := session.snapshot()
	m.mu.Unlock()

	return snap, nil
}

// lookup returns the live session instance. It stays internal: Status and
// LastActivity are written under m.mu, so only manager methods that take the
// lock themselves may hold it. The identity fields (ID, Name, PaneID,
// WorkingDir, worktree fields) are immutable after insert and safe to read
// without the lock.
func (m *Manager) lookup(sessionID id.SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, sessionID)
	}
	return s, nil
}

// Get returns a point-in-time copy of a session. Callers get a handle, never
// the registry's mutable instance; all mutation goes through manager methods.
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, sessionID)
	}
	return s.snapshot(), nil
}

// GetByName returns a copy of the session with that name, or nil when no live
// session has it.
func (m *Manager) GetByName(name string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s := m.byNameLocked(name); s != nil {
		return s.snapshot()
	}
	return nil
}

// List returns copies of all live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Destroy kills a session's pane and removes it from the registry.
// cleanupWorktree overrides the session's own setting when non-nil.
func (m *Manager) Destroy(ctx context.Context, sessionID id.SessionID, cleanupWorktree *bool) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	if err := m.ctrl.Kill(ctx, s.PaneID); err != nil {
		return fmt.Errorf("destroy session %q: %w", s.Name, err)
	}

	shouldCleanup := s.CleanupWorktree
	if cleanupWorktree != nil {
		shouldCleanup = *cleanupWorktree
	}
	if shouldCleanup && s.WorktreePath != "" {
		// Resolve the repository root before the checkout disappears.
		gitRoot := gitutil.Root(s.WorktreePath)

		if err := gitutil.RemoveWorktree(s.WorktreePath, true); err != nil {
			m.logger.Warn("failed to remove worktree",
				zap.String("path", s.WorktreePath), zap.Error(err))
		} else if s.WorktreeBranch != "" && gitRoot != "" {
			if err := gitutil.DeleteBranch(gitRoot, s.WorktreeBranch, true); err != nil {
				m.logger.Warn("failed to delete worktree branch",
					zap.String("branch", s.WorktreeBranch), zap.Error(err))
			}
		}
	}

	if m.history != nil {
		m.history.LogSystem(sessionID.String(), "Session destroyed: "+s.Name)
		if err := m.history.Archive(sessionID.String()); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("failed to archive session history",
				zap.String("session_id", sessionID.String()), zap.Error(err))
		}
	}

	m.mu.Lock()
	delete(m.sessions, sessionID)
	delete(m.outputCache, sessionID)
	m.mu.Unlock()

	m.logger.Info("destroyed session",
		zap.String("session_id", sessionID.String()), zap.String("name", s.Name))
	return nil
}

// SendInput sends a line of text to a session, submitting it with a carriage
// return.
func (m *Manager) SendInput(ctx context.Context, sessionID id.SessionID, text string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	if err := m.ctrl.SendText(ctx, s.PaneID, text+"\r"); err != nil {
		return fmt.Errorf("send input to %q: %w", s.Name, err)
	}

	m.mu.Lock()
	s.touch()
	m.mu.Unlock()

	if m.history != nil {
		m.history.LogInput(sessionID.String(), text)
	}
	return nil
}

// SendKey sends a named special key (C-c, Enter, Up, ...) without appending
// a newline. Unknown names are sent literally.
func (m *Manager) SendKey(ctx context.Context, sessionID id.SessionID, key string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	if err := m.ctrl.SendText(ctx, s.PaneID, KeySequence(key)); err != nil {
		return fmt.Errorf("send key to %q: %w", s.Name, err)
	}

	m.mu.Lock()
	s.touch()
	m.mu.Unlock()
	return nil
}

// Cancel interrupts the running command in a session (Ctrl+C).
func (m *Manager) Cancel(ctx context.Context, sessionID id.SessionID) error {
	if err := m.SendKey(ctx, sessionID, "C-c"); err != nil {
		return err
	}
	m.logger.Info("cancelled command", zap.String("session_id", sessionID.String()))
	return nil
}

// Resize records a resize request. Pane geometry is owned by the terminal
// host, so this is advisory only.
func (m *Manager) Resize(ctx context.Context, sessionID id.SessionID, cols, rows int) error {
	if _, err := m.lookup(sessionID); err != nil {
		return err
	}
	m.logger.Debug("resize request (host-controlled, advisory only)",
		zap.String("session_id", sessionID.String()),
		zap.Int("cols", cols), zap.Int("rows", rows))
	return nil
}

// Read captures the last lines of a session's rendered output, escape
// sequences preserved, and updates the waiting-input state.
func (m *Manager) Read(ctx context.Context, sessionID id.SessionID, lines int) (*Output, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if lines <= 0 {
		lines = m.opts.ReadLines
	}

	content, err := m.ctrl.GetText(ctx, s.PaneID, lines, true)
	if err != nil {
		return nil, fmt.Errorf("read output of %q: %w", s.Name, err)
	}

	waiting := isWaitingInput(content)

	m.mu.Lock()
	if waiting {
		s.Status = StatusWaitingInput
	} else if s.Status == StatusWaitingInput {
		s.Status = StatusActive
	}
	m.mu.Unlock()

	return &Output{
		SessionID:      sessionID,
		Content:        content,
		Timestamp:      time.Now(),
		IsWaitingInput: waiting,
	}, nil
}

// Status returns a session's lifecycle state.
func (m *Manager) Status(sessionID id.SessionID) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, sessionID)
	}
	return s.Status, nil
}

// GetNewOutput returns output that changed since the previous call for this
// session, or "" when the screen content is unchanged. Change detection
// fingerprints the escape-stripped capture; the returned delta is the last
// TailLines lines, stripped when stripANSI is set.
func (m *Manager) GetNewOutput(ctx context.Context, sessionID id.SessionID, lines int, stripANSI bool) (string, error) {
	out, err := m.Read(ctx, sessionID, lines)
	if err != nil {
		return "", err
	}

	full := ansi.NormalizeLineEndings(out.Content)
	clean := ansi.Strip(full)
	fingerprint := hash.Fingerprint(clean)

	m.mu.Lock()
	cached := m.outputCache[sessionID]
	if cached == fingerprint {
		m.mu.Unlock()
		return "", nil
	}
	m.outputCache[sessionID] = fingerprint
	m.mu.Unlock()

	content := full
	if stripANSI {
		content = clean
	}
	return ansi.TailLines(strings.TrimSpace(content), m.opts.TailLines), nil
}

// ClearOutputCache resets change detection so the next read reports the full
// current screen as new.
func (m *Manager) ClearOutputCache(sessionID id.SessionID) {
	m.mu.Lock()
	delete(m.outputCache, sessionID)
	m.mu.Unlock()
}

// CheckAlive reports whether the session's pane still exists on the host.
// Host failures report false rather than erroring.
func (m *Manager) CheckAlive(ctx context.Context, sessionID id.SessionID) bool {
	s, err := m.lookup(sessionID)
	if err != nil {
		return false
	}

	panes, err := m.ctrl.List(ctx)
	if err != nil {
		return false
	}
	for _, p := range panes {
		if p.PaneID == s.PaneID {
			return true
		}
	}
	return false
}

// Restart destroys a session and recreates it with the same name and working
// directory.
func (m *Manager) Restart(ctx context.Context, sessionID id.SessionID) (*Session, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	name, workDir := s.Name, s.WorkingDir

	if err := m.Destroy(ctx, sessionID, nil); err != nil {
		return nil, err
	}
	return m.Create(ctx, CreateOptions{Name: name, WorkingDir: workDir})
}

// CleanupIdle destroys sessions with no activity for at least idleFor and
// returns their IDs. Individual failures are logged and skipped.
func (m *Manager) CleanupIdle(ctx context.Context, idleFor time.Duration) []id.SessionID {
	m.mu.RLock()
	var stale []id.SessionID
	now := time.Now()
	for sessionID, s := range m.sessions {
		if now.Sub(s.LastActivity) > idleFor {
			stale = append(stale, sessionID)
		}
	}
	m.mu.RUnlock()

	var destroyed []id.SessionID
	for _, sessionID := range stale {
		if err := m.Destroy(ctx, sessionID, nil); err != nil {
			m.logger.Error("failed to clean up idle session",
				zap.String("session_id", sessionID.String()), zap.Error(err))
			continue
		}
		destroyed = append(destroyed, sessionID)
	}
	return destroyed
}

// DestroyAll destroys every session, returning how many were destroyed.
func (m *Manager) DestroyAll(ctx context.Context) int {
	m.mu.RLock()
	ids := make([]id.SessionID, 0, len(m.sessions))
	for sessionID := range m.sessions {
		ids = append(ids, sessionID)
	}
	m.mu.RUnlock()

	count := 0
	for _, sessionID := range ids {
		if err := m.Destroy(ctx, sessionID, nil); err != nil {
			m.logger.Error("failed to destroy session",
				zap.String("session_id", sessionID.String()), zap.Error(err))
			continue
		}
		count++
	}
	m.logger.Info("destroyed all sessions", zap.Int("count", count))
	return count
}

// Shutdown forgets all sessions without killing their panes, so work in the
// terminal host survives a supervisor restart.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	n := len(m.sessions)
	m.sessions = make(map[id.SessionID]*Session)
	m.outputCache = make(map[id.SessionID]string)
	m.mu.Unlock()

	m.logger.Info("session manager shut down, panes preserved", zap.Int("sessions", n))
}

// DiscoverPanes lists host panes in the manager's workspace, whether managed
// or not. Host failures yield an empty list.
func (m *Manager) DiscoverPanes(ctx context.Context) []termctl.PaneInfo {
	panes, err := m.ctrl.List(ctx)
	if err != nil {
		m.logger.Error("failed to discover panes", zap.Error(err))
		return nil
	}

	var ours []termctl.PaneInfo
	for _, p := range panes {
		if p.Workspace == m.opts.Workspace {
			ours = append(ours, p)
		}
	}
	return ours
}

// Import adopts an existing host pane as a managed session. name and
// workingDir default to the pane's title and cwd; a name collision gets a
// short ID suffix instead of failing.
func (m *Manager) Import(ctx context.Context, paneID int, name, workingDir string) (*Session, error) {
	m.mu.RLock()
	for _, s := range m.sessions {
		if s.PaneID == paneID {
			m.mu.RUnlock()
			return nil, fmt.Errorf("%w: pane %d already managed as %q", ErrDuplicateName, paneID, s.Name)
		}
	}
	m.mu.RUnlock()

	panes, err := m.ctrl.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("import pane %d: %w", paneID, err)
	}

	var info *termctl.PaneInfo
	for i := range panes {
		if panes[i].PaneID == paneID {
			info = &panes[i]
			break
		}
	}
	if info == nil {
		return nil, fmt.Errorf("import pane %d: %w", paneID, termctl.NewError("import", "pane not found"))
	}

	if workingDir == "" {
		workingDir = info.CWD
		if workingDir == "" {
			workingDir = "~"
		}
	}

	sessionID := id.NewSessionID()
	if name == "" {
		name = info.Title
		if name == "" {
			name = fmt.Sprintf("pane-%d", paneID)
		}
	}

	m.mu.Lock()
	if m.byNameLocked(name) != nil {
		name = name + "-" + sessionID.Short()[:4]
	}
	now := time.Now()
	session := &Session{
		ID:           sessionID,
		Name:         name,
		WorkingDir:   workingDir,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
		PaneID:       paneID,
	}
	m.sessions[sessionID] = session
	m.outputCache[sessionID] = ""
	snap := session.snapshot()
	m.mu.Unlock()

	m.logger.Info("imported session",
		zap.String("session_id", sessionID.String()),
		zap.String("name", name), zap.Int("pane_id", paneID))
	return snap, nil
}

// ImportAll adopts every unmanaged pane in the workspace. Failures are
// logged per pane.
func (m *Manager) ImportAll(ctx context.Context) []*Session {
	panes := m.DiscoverPanes(ctx)

	m.mu.RLock()
	managed := make(map[int]bool, len(m.sessions))
	for _, s := range m.sessions {
		managed[s.PaneID] = true
	}
	m.mu.RUnlock()

	var imported []*Session
	for _, p := range panes {
		if managed[p.PaneID] {
			continue
		}
		s, err := m.Import(ctx, p.PaneID, "", "")
		if err != nil {
			m.logger.Warn("failed to import pane",
				zap.Int("pane_id", p.PaneID), zap.Error(err))
			continue
		}
		imported = append(imported, s)
	}
	return imported
}

func (m *Manager) byNameLocked(name string) *Session {
	for _, s := range m.sessions {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (m *Manager) namesLocked() []string {
	names := make([]string, 0, len(m.sessions))
	for _, s := range m.sessions {
		names = append(names, s.Name)
	}
	return names
}

func tailOf(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
