package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"personamux/internal/adapters/backend/copilot"
	"personamux/internal/domain"
)

func newStartCmd(rootPath *string) *cobra.Command {
	var (
		detach bool
		logDir string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Bootstrap the shared workspace, panes and broker",
		Long:  "start initializes the shared directory, lays out one pane per persona in the terminal session, launches a REPL in each pane and brings up the broker daemon. Running it again repairs whatever is missing.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.mux.Available(ctx); err != nil {
				return err
			}
			if err := copilot.Available(app.cfg.BackendCommand); err != nil {
				return err
			}

			if _, err := app.session.InitOrRepair(ctx, app.cfg.SharedDir, app.cfg.ResponsesDir); err != nil {
				return err
			}

			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve own executable: %w", err)
			}

			hadSession, err := app.mux.HasSession(ctx)
			if err != nil {
				return err
			}

			if logDir != "" {
				if err := os.MkdirAll(logDir, 0o700); err != nil {
					return fmt.Errorf("create pane log directory: %w", err)
				}
			}

			for _, persona := range domain.PersonaOrder {
				known, resolveErr := app.registry.Resolve(ctx, persona)
				if resolveErr != nil {
					return resolveErr
				}

				address, acquireErr := app.registry.Acquire(ctx, persona)
				if acquireErr != nil {
					return acquireErr
				}

				// A freshly allocated pane gets its REPL; panes that
				// survived from an earlier run keep the one they have.
				if known == "" {
					if logDir != "" {
						logPath := filepath.Join(logDir, fmt.Sprintf("%s.log", persona))
						if pipeErr := app.mux.PipePane(ctx, address, logPath); pipeErr != nil {
							return pipeErr
						}
					}
					repl := fmt.Sprintf("%s --root %s repl %s", executable, app.cfg.RootPath, persona)
					if sendErr := app.mux.SendText(ctx, address, repl); sendErr != nil {
						return sendErr
					}
				}
			}

			if !hadSession {
				if err := app.mux.SetSessionOption(ctx, "history-limit", fmt.Sprintf("%d", app.cfg.HistoryLimit)); err != nil {
					return err
				}
				if app.cfg.Mouse {
					if err := app.mux.SetSessionOption(ctx, "mouse", "on"); err != nil {
						return err
					}
				}
				if err := app.mux.SetSessionOption(ctx, "pane-border-status", "top"); err != nil {
					return err
				}
			}

			if pmPane, resolveErr := app.registry.Resolve(ctx, domain.PersonaPM); resolveErr == nil && pmPane != "" {
				if focusErr := app.mux.Focus(ctx, pmPane); focusErr != nil {
					return focusErr
				}
			}

			if err := ensureBroker(ctx, app, executable); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "session %q ready\n", app.cfg.TmuxSession)

			if detach {
				fmt.Fprintf(cmd.OutOrStdout(), "attach with: tmux attach -t %s\n", app.cfg.TmuxSession)
				return nil
			}
			return app.mux.Attach(ctx)
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "do not attach to the terminal session once ready")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "pipe each persona's pane output to <log-dir>/<persona>.log")

	return cmd
}

// ensureBroker starts the broker daemon when no responsive one answers on
// the socket. The daemon is detached from this process and logs to the
// shared directory.
func ensureBroker(ctx context.Context, app *app, executable string) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := app.broker.Ping(pingCtx); err == nil {
		return nil
	}

	logFile, err := os.OpenFile(app.cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open broker log: %w", err)
	}
	defer logFile.Close()

	daemon := exec.Command(executable, "--root", app.cfg.RootPath, "broker", "serve")
	daemon.Stdout = logFile
	daemon.Stderr = logFile
	daemon.Dir = app.cfg.RootPath
	if err := daemon.Start(); err != nil {
		return fmt.Errorf("start broker daemon: %w", err)
	}
	if err := daemon.Process.Release(); err != nil {
		return fmt.Errorf("detach broker daemon: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := app.broker.Ping(ctx); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("broker did not answer on %s", app.cfg.SocketPath)
}
