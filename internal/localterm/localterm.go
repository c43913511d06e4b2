// Package localterm is a process-control backend that hosts panes in-process
// using PTYs instead of an external WezTerm instance. It exists for platforms
// without WezTerm and for exercising the registry against real processes in
// tests.
package localterm

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
)

const (
	defaultCols = 120
	defaultRows = 40

	// paneBufferSize bounds retained output per pane.
	paneBufferSize = 1024 * 1024
)

// pane is one PTY-hosted process.
type pane struct {
	id        int
	workspace string
	cwd       string
	title     string

	cmd  *exec.Cmd
	ptmx *os.File

	buf *Buffer

	mu     sync.RWMutex
	closed bool
}

// Controller hosts panes on local PTYs.
type Controller struct {
	mu     sync.RWMutex
	panes  map[int]*pane
	nextID int
	logger *zap.Logger
}

// NewController creates an empty local controller.
func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		panes:  make(map[int]*pane),
		nextID: 1,
		logger: logger,
	}
}

// Spawn starts argv on a new PTY and returns its pane ID.
func (c *Controller) Spawn(ctx context.Context, workspace, cwd string, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, termctl.NewError("spawn", "empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: defaultRows, Cols: defaultCols})
	if err != nil {
		return 0, termctl.NewError("spawn", err.Error())
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	p := &pane{
		id:        id,
		workspace: workspace,
		cwd:       cwd,
		title:     argv[0],
		cmd:       cmd,
		ptmx:      ptmx,
		buf:       NewBuffer(paneBufferSize),
	}
	c.panes[id] = p
	c.mu.Unlock()

	go c.readOutput(p)
	go c.monitorProcess(p)

	c.logger.Info("spawned local pane", zap.Int("pane_id", id), zap.String("cwd", cwd))
	return id, nil
}

// readOutput continuously drains the PTY into the pane buffer.
func (c *Controller) readOutput(p *pane) {
	buf := make([]byte, 4096)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			p.buf.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Debug("pane read ended", zap.Int("pane_id", p.id), zap.Error(err))
			}
			return
		}
	}
}

// monitorProcess reaps the child and marks the pane closed.
func (c *Controller) monitorProcess(p *pane) {
	p.cmd.Wait()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.ptmx.Close()
}

func (c *Controller) pane(paneID int) (*pane, error) {
	c.mu.RLock()
	p, ok := c.panes[paneID]
	c.mu.RUnlock()
	if !ok {
		return nil, termctl.NewError("lookup", "pane not found")
	}
	return p, nil
}

// Kill terminates a pane's process and forgets the pane.
func (c *Controller) Kill(ctx context.Context, paneID int) error {
	p, err := c.pane(paneID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.ptmx.Close()
	}
	p.mu.Unlock()

	c.mu.Lock()
	delete(c.panes, paneID)
	c.mu.Unlock()

	return nil
}

// SendText writes text to the pane's input.
func (c *Controller) SendText(ctx context.Context, paneID int, text string) error {
	p, err := c.pane(paneID)
	if err != nil {
		return err
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return termctl.NewError("send-text", "pane is closed")
	}

	if _, err := p.ptmx.Write([]byte(text)); err != nil {
		return termctl.NewError("send-text", err.Error())
	}
	return nil
}

// GetText returns the last maxLines of buffered pane output. The buffer holds
// raw bytes, so escapes are present either way; withEscapes only matters for
// hosts that can render clean text, which a raw PTY buffer cannot.
func (c *Controller) GetText(ctx context.Context, paneID int, maxLines int, withEscapes bool) (string, error) {
	p, err := c.pane(paneID)
	if err != nil {
		return "", err
	}

	content := string(p.buf.Snapshot())
	lines := strings.Split(content, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n"), nil
}

// List returns all live panes.
func (c *Controller) List(ctx context.Context) ([]termctl.PaneInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	infos := make([]termctl.PaneInfo, 0, len(c.panes))
	for _, p := range c.panes {
		infos = append(infos, termctl.PaneInfo{
			PaneID:    p.id,
			Workspace: p.workspace,
			CWD:       p.cwd,
			Title:     p.title,
		})
	}
	return infos, nil
}
