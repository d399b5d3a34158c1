package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Row is one label/value line of a summary box.
type Row struct {
	Label string
	Value string
	// Highlight renders the value in the warning style.
	Highlight bool
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// SummaryBox renders rows in a bordered box under a title. Without colors
// the box is drawn as plain indented text.
func SummaryBox(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}

	lines := make([]string, 0, len(rows)+1)
	if !IsColorEnabled() {
		lines = append(lines, title)
		for _, r := range rows {
			lines = append(lines, "  "+pad(r.Label, width)+"  "+r.Value)
		}
		return strings.Join(lines, "\n") + "\n"
	}

	lines = append(lines, titleStyle.Render(title))
	for _, r := range rows {
		value := r.Value
		if r.Highlight {
			value = warnStyle.Render(value)
		}
		lines = append(lines, labelStyle.Render(pad(r.Label, width))+"  "+value)
	}
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
