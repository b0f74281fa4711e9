package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"personamux/internal/domain"
	"personamux/internal/ports"
)

// CommandRunner executes tmux commands with optional stdin data.
type CommandRunner interface {
	Run(ctx context.Context, args []string, input []byte) ([]byte, error)
}

// Client binds one tmux session and implements the multiplexer capability.
// Pane addresses are tmux pane ids (%N): stable for the pane's lifetime,
// unlike positional indices, which relayouts invalidate.
type Client struct {
	session string
	runner  CommandRunner
}

var _ ports.Multiplexer = (*Client)(nil)

// NewClient returns a client for the named session using the default
// exec-backed runner.
func NewClient(session string) *Client {
	return &Client{session: session, runner: execRunner{}}
}

// NewClientWithRunner returns a client using a custom command runner.
func NewClientWithRunner(session string, runner CommandRunner) *Client {
	return &Client{session: session, runner: runner}
}

// Available reports an error when tmux cannot be invoked at all.
func (c *Client) Available(ctx context.Context) error {
	if _, err := c.runWithOutput(ctx, []string{"-V"}, nil); err != nil {
		return fmt.Errorf("tmux is not available: %w", err)
	}
	return nil
}

// HasSession reports whether the bound session exists.
func (c *Client) HasSession(ctx context.Context) (bool, error) {
	if c == nil || c.runner == nil {
		return false, errors.New("tmux runner unavailable")
	}
	output, err := c.runner.Run(ctx, []string{"has-session", "-t", c.session}, nil)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		if len(output) > 0 {
			return false, fmt.Errorf("tmux has-session failed: %s", bytes.TrimSpace(output))
		}
		return false, fmt.Errorf("tmux has-session failed: %w", err)
	}
	return true, nil
}

// KillSession terminates the bound session.
func (c *Client) KillSession(ctx context.Context) error {
	return c.run(ctx, []string{"kill-session", "-t", c.session}, nil)
}

// CreateOrSplitSurface creates the session's first pane, or splits a new one
// into the existing session, and returns the pane's stable id.
func (c *Client) CreateOrSplitSurface(ctx context.Context) (domain.PaneAddress, error) {
	exists, err := c.HasSession(ctx)
	if err != nil {
		return "", err
	}

	var args []string
	if exists {
		args = []string{"split-window", "-d", "-t", c.session, "-P", "-F", "#{pane_id}"}
	} else {
		args = []string{"new-session", "-d", "-s", c.session, "-P", "-F", "#{pane_id}"}
	}

	output, err := c.runWithOutput(ctx, args, nil)
	if err != nil {
		return "", err
	}

	address := domain.PaneAddress(strings.TrimSpace(string(output)))
	if address == "" {
		return "", errors.New("tmux returned an empty pane id")
	}

	if exists {
		// Keep splits from running out of room as panes accumulate.
		if err := c.SelectTiledLayout(ctx); err != nil {
			return "", err
		}
	}

	return address, nil
}

// SetLabel applies a pane title. Idempotent; tmux overwrites in place.
func (c *Client) SetLabel(ctx context.Context, addr domain.PaneAddress, label string) error {
	return c.run(ctx, []string{"select-pane", "-t", string(addr), "-T", label}, nil)
}

// SendText types a line into the pane followed by Enter.
func (c *Client) SendText(ctx context.Context, addr domain.PaneAddress, text string) error {
	return c.run(ctx, []string{"send-keys", "-t", string(addr), text, "Enter"}, nil)
}

// Focus selects the pane so it is active when the user attaches.
func (c *Client) Focus(ctx context.Context, addr domain.PaneAddress) error {
	return c.run(ctx, []string{"select-pane", "-t", string(addr)}, nil)
}

// SelectTiledLayout rebalances the session window into equal tiles.
func (c *Client) SelectTiledLayout(ctx context.Context) error {
	return c.run(ctx, []string{"select-layout", "-t", c.session, "tiled"}, nil)
}

// SetSessionOption applies a per-session option (history-limit, mouse, ...).
func (c *Client) SetSessionOption(ctx context.Context, name, value string) error {
	return c.run(ctx, []string{"set-option", "-t", c.session, name, value}, nil)
}

// PipePane appends pane output to a log file so nothing scrolls away.
func (c *Client) PipePane(ctx context.Context, addr domain.PaneAddress, logPath string) error {
	command := fmt.Sprintf("cat >> %q", logPath)
	return c.run(ctx, []string{"pipe-pane", "-t", string(addr), "-o", command}, nil)
}

// Attach replaces the terminal with the tmux session until detach.
func (c *Client) Attach(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "tmux", "attach", "-t", c.session)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("attach to tmux session %q: %w", c.session, err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args []string, input []byte) error {
	_, err := c.runWithOutput(ctx, args, input)
	return err
}

func (c *Client) runWithOutput(ctx context.Context, args []string, input []byte) ([]byte, error) {
	if c == nil || c.runner == nil {
		return nil, errors.New("tmux runner unavailable")
	}
	output, err := c.runner.Run(ctx, args, input)
	if err != nil {
		if len(output) > 0 {
			return nil, fmt.Errorf("tmux %s failed: %s", args[0], bytes.TrimSpace(output))
		}
		return nil, fmt.Errorf("tmux %s failed: %w", args[0], err)
	}
	return output, nil
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, args []string, input []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	if len(input) > 0 {
		cmd.Stdin = bytes.NewReader(input)
	}
	return cmd.CombinedOutput()
}
