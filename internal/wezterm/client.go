// Package wezterm drives a WezTerm terminal host through its CLI.
//
// Every operation shells out to `wezterm cli ...` with a bounded timeout and
// maps failures onto the process-control error type. The binary is located at
// construction time; a missing binary is fatal to startup, not to individual
// calls.
package wezterm

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/termctl"
)

// ErrNotInstalled is returned by NewClient when the wezterm binary cannot be
// found on PATH.
var ErrNotInstalled = errors.New("wezterm not found: install WezTerm (winget install wez.wezterm)")

const defaultCallTimeout = 10 * time.Second

// Client is the wezterm-backed process controller.
type Client struct {
	path        string
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewClient locates the wezterm binary and returns a client.
func NewClient(logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := exec.LookPath("wezterm")
	if err != nil {
		return nil, ErrNotInstalled
	}

	return &Client{
		path:        path,
		callTimeout: defaultCallTimeout,
		logger:      logger,
	}, nil
}

// runCLI executes `wezterm cli args...` and returns stdout.
func (c *Client) runCLI(ctx context.Context, op string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.path, append([]string{"cli"}, args...)...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running wezterm cli", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", termctl.NewError(op, detail)
	}

	return stdout.String(), nil
}

// Spawn creates a new window in the given workspace running argv and returns
// the pane ID wezterm prints on stdout.
func (c *Client) Spawn(ctx context.Context, workspace, cwd string, argv []string) (int, error) {
	args := []string{"spawn", "--new-window", "--workspace", workspace, "--cwd", cwd, "--"}
	args = append(args, argv...)

	out, err := c.runCLI(ctx, "spawn", args...)
	if err != nil {
		return 0, err
	}

	paneID, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, termctl.NewError("spawn", fmt.Sprintf("unexpected spawn output %q", strings.TrimSpace(out)))
	}
	return paneID, nil
}

// Kill terminates a pane.
func (c *Client) Kill(ctx context.Context, paneID int) error {
	_, err := c.runCLI(ctx, "kill-pane", "kill-pane", "--pane-id", strconv.Itoa(paneID))
	return err
}

// SendText writes text directly to the pane, bypassing paste bracketing so
// control characters reach the application.
func (c *Client) SendText(ctx context.Context, paneID int, text string) error {
	_, err := c.runCLI(ctx, "send-text",
		"send-text", "--pane-id", strconv.Itoa(paneID), "--no-paste", text)
	return err
}

// GetText captures the last maxLines of the pane's rendered content.
func (c *Client) GetText(ctx context.Context, paneID int, maxLines int, withEscapes bool) (string, error) {
	args := []string{"get-text", "--pane-id", strconv.Itoa(paneID)}
	if withEscapes {
		args = append(args, "--escapes")
	}
	// Negative start line counts from the bottom of the scrollback.
	args = append(args, "--start-line", fmt.Sprintf("-%d", maxLines))

	return c.runCLI(ctx, "get-text", args...)
}

// List returns all panes known to the host.
func (c *Client) List(ctx context.Context) ([]termctl.PaneInfo, error) {
	out, err := c.runCLI(ctx, "list", "list", "--format", "json")
	if err != nil {
		return nil, err
	}

	var panes []termctl.PaneInfo
	if err := sonic.Unmarshal([]byte(out), &panes); err != nil {
		return nil, termctl.NewError("list", "malformed pane list: "+err.Error())
	}
	return panes, nil
}
