package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dispatchDoneMsg struct {
	err error
}

type dispatchSpinnerModel struct {
	spinner  spinner.Model
	label    string
	dispatch tea.Cmd
	err      error
	done     bool
}

func newDispatchSpinnerModel(label string, dispatch tea.Cmd) dispatchSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return dispatchSpinnerModel{
		spinner:  s,
		label:    label,
		dispatch: dispatch,
	}
}

func (m dispatchSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.dispatch)
}

func (m dispatchSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case dispatchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m dispatchSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

func runDispatchSpinner(ctx context.Context, output io.Writer, label string, dispatch func(context.Context) error) error {
	dispatchCmd := func() tea.Msg {
		return dispatchDoneMsg{err: dispatch(ctx)}
	}

	p := tea.NewProgram(
		newDispatchSpinnerModel(label, dispatchCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(dispatchSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
