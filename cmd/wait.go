package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"personamux/internal/domain"
)

func newWaitCmd(rootPath *string) *cobra.Command {
	var (
		statuses    []string
		forResponse bool
		since       string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait <persona>",
		Short: "Block until a persona reaches a status or produces a new response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			persona := domain.PersonaID(args[0])

			if forResponse {
				record, waitErr := app.wait.WaitForNewResponse(cmd.Context(), persona, since, timeout)
				if waitErr != nil {
					return waitErr
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(record.Text, "\n"))
				return err
			}

			want := make([]domain.Status, 0, len(statuses))
			for _, raw := range statuses {
				status := domain.Status(raw)
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", raw)
				}
				want = append(want, status)
			}
			if len(want) == 0 {
				want = []domain.Status{domain.StatusDone, domain.StatusBlocked}
			}

			record, err := app.wait.WaitForStatus(cmd.Context(), persona, want, timeout)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", persona, record.Status)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "for", nil, "statuses to wait for (default done,blocked)")
	cmd.Flags().BoolVar(&forResponse, "response", false, "wait for a new archived response instead of a status")
	cmd.Flags().StringVar(&since, "since", "", "request id of the response already seen")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this duration")

	return cmd
}
