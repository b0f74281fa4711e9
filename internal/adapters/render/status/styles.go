package status

import (
	"github.com/charmbracelet/lipgloss"

	"personamux/internal/domain"
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	persona lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	meta    lipgloss.Style
	status  map[domain.Status]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		persona: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		status: map[domain.Status]lipgloss.Style{
			domain.StatusIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			domain.StatusWorking: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
			domain.StatusWaiting: lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
			domain.StatusDone:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
			domain.StatusBlocked: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		},
	}
}
