package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"personamux/internal/application"
	"personamux/internal/domain"
)

func newAskCmd(rootPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask <persona> <prompt...>",
		Short: "Send a prompt to a persona and print the response",
		Long:  "ask dispatches a prompt through the broker and waits for the answer. The prompt may carry {{agent:...}} markers to fan work out to other personas, and {{ctx:...}} or {{last:...}} markers to inline shared state.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			persona := domain.PersonaID(args[0])
			if !persona.Valid() {
				return fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, persona)
			}
			prompt := strings.Join(args[1:], " ")

			if err := app.broker.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("broker is not running (try 'personamux start'): %w", err)
			}

			expander := application.NewExpander(app.archive, app.broker)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var record domain.ResponseRecord
			dispatch := func(ctx context.Context) error {
				var dispatchErr error
				record, dispatchErr = expander.Run(ctx, persona, prompt)
				return dispatchErr
			}

			label := fmt.Sprintf("Asking %s...", persona.DisplayName())
			if err := runDispatchSpinner(ctx, cmd.ErrOrStderr(), label, dispatch); err != nil {
				return err
			}

			if record.RequestID == "" {
				// The whole prompt was delegated away; the personas it
				// reached archived their own answers.
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "delegated; see 'personamux status'")
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(record.Text, "\n"))
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abandon the prompt after this duration (0 waits indefinitely)")

	return cmd
}
