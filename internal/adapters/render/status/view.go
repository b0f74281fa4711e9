package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"personamux/internal/domain"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(state domain.SessionState, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Session: %s", state.SessionName)),
		s.header.Render(fmt.Sprintf("root: %s", state.RootPath)),
	}

	if len(state.Personas) == 0 {
		lines = append(lines, s.empty.Render("No personas recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, id := range domain.PersonaOrder {
		record, ok := state.Personas[id]
		if !ok {
			continue
		}
		lines = append(lines, s.section.Render(renderPersona(id, record, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderPersona(id domain.PersonaID, record domain.PersonaRecord, opts RenderOptions, s styles) string {
	parts := []string{
		s.persona.Render(personaTitle(id, record)),
		statusLine(record, opts, s),
	}

	if record.Message != "" {
		parts = append(parts, s.detail.Render(fmt.Sprintf("  note: %s", record.Message)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func personaTitle(id domain.PersonaID, record domain.PersonaRecord) string {
	name := strings.TrimSpace(record.DisplayName)
	if name == "" {
		name = id.DisplayName()
	}
	if record.PaneAddress == "" {
		return fmt.Sprintf("%s (%s)", name, id)
	}
	return fmt.Sprintf("%s (%s, pane %s)", name, id, record.PaneAddress)
}

func statusLine(record domain.PersonaRecord, opts RenderOptions, s styles) string {
	style, ok := s.status[record.Status]
	if !ok {
		style = s.empty
	}

	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.meta.Render("  status: "),
		style.Render(string(record.Status)),
		s.meta.Render(fmt.Sprintf(" (updated %s)", formatUpdatedRelative(record.UpdatedAt, opts.Now))),
	)

	if isStale(record.UpdatedAt, opts.Now, opts.StaleAfter) {
		line += " " + s.warning.Render("[stale]")
	}

	return line
}

func isStale(updatedAt, now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 || now.IsZero() || updatedAt.IsZero() {
		return false
	}
	return now.Sub(updatedAt) > staleAfter
}

func formatUpdatedRelative(updatedAt, now time.Time) string {
	if updatedAt.IsZero() {
		return "never"
	}
	if now.IsZero() || updatedAt.After(now) {
		return updatedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(updatedAt)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		minutes := int(math.Floor(elapsed.Minutes()))
		return fmt.Sprintf("%dm ago", minutes)
	case elapsed < 24*time.Hour:
		hours := int(math.Floor(elapsed.Hours()))
		return fmt.Sprintf("%dh ago", hours)
	default:
		days := int(math.Floor(elapsed.Hours() / 24))
		return fmt.Sprintf("%dd ago", days)
	}
}
