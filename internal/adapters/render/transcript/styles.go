package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title          lipgloss.Style
	header         lipgloss.Style
	dream          lipgloss.Style
	question       lipgloss.Style
	answer         lipgloss.Style
	interpretation lipgloss.Style
	label          lipgloss.Style
	warning        lipgloss.Style
	section        lipgloss.Style
	empty          lipgloss.Style
	status         map[string]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:          lipgloss.NewStyle().Bold(true),
		header:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		dream:          lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("252")),
		question:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		answer:         lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		interpretation: lipgloss.NewStyle().Foreground(lipgloss.Color("159")).PaddingLeft(2),
		label:          lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warning:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:        lipgloss.NewStyle().MarginTop(1),
		empty:          lipgloss.NewStyle().Faint(true),
		status: map[string]lipgloss.Style{
			"pending":      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			"interpreting": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			"completed":    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		},
	}
}

func (s styles) statusStyle(status string) lipgloss.Style {
	if style, ok := s.status[status]; ok {
		return style
	}
	return s.label
}
