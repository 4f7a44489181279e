package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/insight-agent/internal/app/dashboard"
	"github.com/PabloGalante/insight-agent/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	captionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	agentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	paneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	// one colour per series, in panel order
	seriesColors = []lipgloss.Color{"8", "12", "13", "14"}
)

// renderPanel draws the panel as horizontal bars, one row per label and
// series, scaled to the panel's largest value.
func renderPanel(p dashboard.Panel, width int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(captionStyle.Render(p.Caption))
	b.WriteString("\n\n")

	labelW := 0
	for _, l := range p.Labels {
		labelW = max(labelW, lipgloss.Width(l))
	}
	nameW := 0
	for _, s := range p.Series {
		nameW = max(nameW, lipgloss.Width(s.Name))
	}

	// label, name, value column and spacing
	barMax := max(width-labelW-nameW-14, 5)
	top := p.Max()

	for i, label := range p.Labels {
		for j, s := range p.Series {
			rowLabel := ""
			if j == 0 {
				rowLabel = label
			}
			v := s.Values[i]
			n := 0
			if top > 0 {
				n = int(v / top * float64(barMax))
			}
			bar := lipgloss.NewStyle().
				Foreground(seriesColors[j%len(seriesColors)]).
				Render(strings.Repeat("█", n))

			fmt.Fprintf(&b, "%s %s %s %s\n", padRight(rowLabel, labelW), padRight(s.Name, nameW), bar, formatValue(v))
		}
	}

	if p.YAxis != "" {
		b.WriteString(captionStyle.Render("단위: " + p.YAxis))
		b.WriteString("\n")
	}

	if len(p.Insights) > 0 {
		b.WriteString("\n")
		for _, in := range p.Insights {
			b.WriteString("• " + in + "\n")
		}
	}

	return b.String()
}

// padRight pads s with spaces to w terminal cells. Hangul takes two cells
// per rune, so rune counts don't line columns up.
func padRight(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

// renderHistory prints messages oldest first.
func renderHistory(msgs []*domain.Message, greeting string) string {
	var b strings.Builder

	if greeting != "" {
		b.WriteString(agentStyle.Render("Agent:") + " " + greeting + "\n\n")
	}
	for _, m := range msgs {
		switch m.Author {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You:") + " " + m.Text)
		default:
			b.WriteString(agentStyle.Render("Agent:") + " " + m.Text)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}
