package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	statusadapter "personamux/internal/adapters/render/status"
)

func newStatusCmd(rootPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show every persona's status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			state, err := app.session.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("load session state: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}

			rendered, err := app.statusRenderer(state, statusadapter.RenderOptions{
				Now:        app.now(),
				StaleAfter: app.cfg.StaleAfter,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable JSON")

	return cmd
}
