package copilot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"personamux/internal/ports"
)

// CommandRunner executes the backend CLI and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, dir string) ([]byte, error)
}

// Backend drives a single stateful conversational CLI session. Prompts must
// arrive one at a time; serialization is the broker's job, not ours. A
// marker file records that a session has been created, so follow-up prompts
// continue it instead of starting fresh.
type Backend struct {
	command    string
	configDir  string
	rootPath   string
	markerPath string
	runner     CommandRunner
}

var _ ports.Backend = (*Backend)(nil)

func NewBackend(command, configDir, rootPath, markerPath string) *Backend {
	return &Backend{
		command:    command,
		configDir:  configDir,
		rootPath:   rootPath,
		markerPath: markerPath,
		runner:     execRunner{},
	}
}

func NewBackendWithRunner(command, configDir, rootPath, markerPath string, runner CommandRunner) *Backend {
	backend := NewBackend(command, configDir, rootPath, markerPath)
	backend.runner = runner
	return backend
}

func (b *Backend) Send(ctx context.Context, prompt string) (string, error) {
	useContinue := b.sessionStarted()

	output, err := b.runPrompt(ctx, prompt, useContinue)

	// A stale marker: the backend has nothing to continue. Clear it and
	// retry once as a fresh session.
	if err != nil && useContinue && looksLikeNothingToContinue(output) {
		_ = os.Remove(b.markerPath)
		output, err = b.runPrompt(ctx, prompt, false)
	}

	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return "", fmt.Errorf("%s prompt failed: %s: %w", b.command, trimmed, err)
		}
		return "", fmt.Errorf("%s prompt failed: %w", b.command, err)
	}

	b.markSessionStarted()

	return string(output), nil
}

func (b *Backend) runPrompt(ctx context.Context, prompt string, useContinue bool) ([]byte, error) {
	args := make([]string, 0, 8)
	if useContinue {
		args = append(args, "--continue")
	}
	args = append(args,
		"--config-dir", b.configDir,
		"--add-dir", b.rootPath,
		"-p", prompt,
	)

	return b.runner.Run(ctx, b.command, args, b.rootPath)
}

func (b *Backend) sessionStarted() bool {
	info, err := os.Stat(b.markerPath)
	return err == nil && !info.IsDir()
}

func (b *Backend) markSessionStarted() {
	if b.sessionStarted() {
		return
	}
	_ = os.WriteFile(b.markerPath, []byte("started\n"), 0o600)
}

func looksLikeNothingToContinue(output []byte) bool {
	msg := strings.ToLower(string(output))
	if !strings.Contains(msg, "session") || !strings.Contains(msg, "continue") {
		return false
	}
	return strings.Contains(msg, "no") || strings.Contains(msg, "not")
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, dir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, context.DeadlineExceeded
	}
	return output, err
}

// Available reports whether the backend CLI can be found on PATH.
func Available(command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("backend CLI %q is required: %w", command, err)
	}
	return nil
}
