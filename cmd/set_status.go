package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"personamux/internal/domain"
)

func newSetStatusCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <persona> <status> [message...]",
		Short: "Record a persona's status with an optional message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			persona := domain.PersonaID(args[0])
			status := domain.Status(args[1])
			message := strings.Join(args[2:], " ")

			state, err := app.session.SetStatus(cmd.Context(), persona, status, message)
			if err != nil {
				return err
			}

			record := state.Personas[persona]
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", record.DisplayName, record.Status)
			return err
		},
	}
}
