package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newStopCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the broker and tear down the terminal session",
		Long:  "stop terminates the broker daemon, removes stale socket and pid files and kills the terminal session. Safe to run when nothing is up.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if stopped := stopBroker(ctx, app); stopped {
				fmt.Fprintln(cmd.OutOrStdout(), "broker stopped")
			}

			// The broker removes its own files on clean shutdown; anything
			// left behind is stale.
			removeIfPresent(app.cfg.SocketPath)
			removeIfPresent(app.cfg.PidPath)

			hasSession, err := app.mux.HasSession(ctx)
			if err != nil {
				return err
			}
			if hasSession {
				if err := app.mux.KillSession(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %q killed\n", app.cfg.TmuxSession)
			}

			return nil
		},
	}
}

func stopBroker(ctx context.Context, app *app) bool {
	raw, err := os.ReadFile(app.cfg.PidPath)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return false
	}

	// Give the daemon a moment to clean up its socket before we sweep.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		if _, statErr := os.Stat(app.cfg.SocketPath); os.IsNotExist(statErr) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	return true
}

func removeIfPresent(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
}
