package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"personamux/internal/application"
	"personamux/internal/domain"
)

func newReplCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl <persona>",
		Short: "Run a persona's interactive prompt loop",
		Long:  "repl reads prompts line by line and dispatches them through the broker as the named persona. Lines starting with '>' are local shortcuts: '>status', '>done <msg>', '>blocked <msg>', '>quit'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := wireApp(*rootPath)
			if err != nil {
				return err
			}

			persona := domain.PersonaID(args[0])
			if !persona.Valid() {
				return fmt.Errorf("%w: %q", domain.ErrPersonaNotFound, persona)
			}

			expander := application.NewExpander(app.archive, app.broker)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s ready. '>quit' exits.\n", persona.DisplayName())

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			for {
				fmt.Fprintf(out, "%s> ", persona)
				if !scanner.Scan() {
					return scanner.Err()
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				// The broker mirrors dispatched prompts into panes as
				// '# <persona> << <preview>' lines. Those land on this
				// loop's stdin; treating '#' lines as comments keeps a
				// mirror from being re-dispatched as a fresh prompt.
				if strings.HasPrefix(line, "#") {
					continue
				}

				if strings.HasPrefix(line, ">") {
					quit, shortcutErr := runShortcut(cmd, app, expander, persona, line)
					if shortcutErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", shortcutErr)
					}
					if quit {
						return nil
					}
					continue
				}

				record, dispatchErr := expander.Run(cmd.Context(), persona, line)
				if dispatchErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", dispatchErr)
				}
				if record.RequestID != "" {
					fmt.Fprintln(out, strings.TrimRight(record.Text, "\n"))
				}
			}
		},
	}
}

// runShortcut handles '>' commands locally, without touching the backend.
func runShortcut(cmd *cobra.Command, app *app, expander *application.Expander, persona domain.PersonaID, line string) (quit bool, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, ">"))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "status":
		state, snapErr := app.session.Snapshot(cmd.Context())
		if snapErr != nil {
			return false, snapErr
		}
		for _, id := range domain.PersonaOrder {
			record := state.Personas[id]
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-8s %s\n", id, record.Status, record.Message)
		}
		return false, nil
	case "wait":
		return false, runWaitShortcut(cmd, app, expander, persona, fields[1:])
	case "done", "blocked", "waiting", "working", "idle":
		message := strings.Join(fields[1:], " ")
		_, setErr := app.session.SetStatus(cmd.Context(), persona, domain.Status(fields[0]), message)
		return false, setErr
	default:
		return false, fmt.Errorf("unknown shortcut %q", fields[0])
	}
}

// runWaitShortcut implements '>wait <persona> [status...] [-- followup]':
// block until the named persona reaches one of the statuses, then dispatch
// the followup prompt, if any, as this persona.
func runWaitShortcut(cmd *cobra.Command, app *app, expander *application.Expander, persona domain.PersonaID, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: >wait <persona> [status...] [-- followup]")
	}

	target := domain.PersonaID(args[0])

	var (
		want     []domain.Status
		followup string
	)
	rest := args[1:]
	for i, arg := range rest {
		if arg == "--" {
			followup = strings.Join(rest[i+1:], " ")
			break
		}
		status := domain.Status(arg)
		if !status.Valid() {
			return fmt.Errorf("unknown status %q", arg)
		}
		want = append(want, status)
	}
	if len(want) == 0 {
		want = []domain.Status{domain.StatusDone, domain.StatusBlocked}
	}

	// The waiter is visible as waiting for the duration of the block and
	// returns to idle afterwards, whether or not the wait succeeded.
	if _, setErr := app.session.SetStatus(cmd.Context(), persona, domain.StatusWaiting, fmt.Sprintf("waiting for %s", target)); setErr != nil {
		return setErr
	}
	defer func() {
		_, _ = app.session.SetStatus(cmd.Context(), persona, domain.StatusIdle, "")
	}()

	record, err := app.wait.WaitForStatus(cmd.Context(), target, want, 5*time.Minute)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, record.Status)

	if followup == "" {
		return nil
	}

	response, err := expander.Run(cmd.Context(), persona, followup)
	if err != nil {
		return err
	}
	if response.RequestID != "" {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(response.Text, "\n"))
	}
	return nil
}
