package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"personamux/internal/adapters/backend/copilot"
	"personamux/internal/adapters/ipc"
	"personamux/internal/application"
	"personamux/internal/ports"
)

func newBrokerCmd(rootPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Manage the prompt broker",
	}

	cmd.AddCommand(
		newBrokerServeCmd(rootPath),
		newBrokerInfoCmd(rootPath),
	)

	return cmd
}

func newBrokerServeCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broker in the foreground",
		Long:  "serve owns the single backend session: it drains prompts from the unix socket one at a time and archives each response. Run it once per project, usually via 'personamux start'.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			if err := copilot.Available(app.cfg.BackendCommand); err != nil {
				return err
			}
			if err := os.MkdirAll(app.cfg.BackendConfigDir, 0o700); err != nil {
				return fmt.Errorf("create backend config directory: %w", err)
			}

			backend := copilot.NewBackend(
				app.cfg.BackendCommand,
				app.cfg.BackendConfigDir,
				app.cfg.RootPath,
				app.cfg.SessionMarker,
			)

			broker := application.NewBroker(backend, app.store, app.archive, app.registry, app.mux, ports.SystemClock{}, application.BrokerOptions{
				DispatchTimeout: app.cfg.DispatchTimeout,
			})

			server := ipc.NewServer(app.cfg.SocketPath, app.cfg.PidPath, broker, broker.QueueDepth)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error { return broker.Run(groupCtx) })
			group.Go(func() error { return server.Serve(groupCtx) })

			fmt.Fprintf(cmd.OutOrStdout(), "broker listening on %s\n", app.cfg.SocketPath)
			return group.Wait()
		},
	}
}

func newBrokerInfoCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the running broker's pid and queue depth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			info, err := app.broker.Info(cmd.Context())
			if err != nil {
				return fmt.Errorf("broker is not running: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pid: %d\nqueue depth: %d\n", info.PID, info.QueueDepth)
			return err
		},
	}
}
