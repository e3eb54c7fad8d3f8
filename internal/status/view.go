package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/ui"
)

// ─── Top-level renderer ─────────────────────────────────────────────────────

func (m Model) renderView() string {
	w := m.Width
	if w < 50 {
		w = 50
	}

	var s strings.Builder
	s.WriteString(m.renderHeader(w))
	s.WriteString("\n\n")
	s.WriteString(m.renderCounters())
	s.WriteString("\n")
	if len(m.volumes) > 0 {
		s.WriteString("\n")
		s.WriteString(m.renderVolumes(w))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.renderStatusFooter())
	return s.String()
}

// ─── Header ──────────────────────────────────────────────────────────────────

func (m Model) renderHeader(w int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.ColorPrimary).
		Render("  " + m.spinner.View() + " Scanning " + strings.Join(m.opts.Roots, ", "))

	plugins := lipgloss.NewStyle().
		Foreground(ui.ColorTextDim).
		Render("  plugins: " + strings.Join(m.opts.Plugins, ", "))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorPrimary).
		Width(w - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, plugins))
}

// ─── Counters ────────────────────────────────────────────────────────────────

func (m Model) renderCounters() string {
	label := lipgloss.NewStyle().Foreground(ui.ColorTextDim).Width(12)
	value := lipgloss.NewStyle().Foreground(ui.ColorText).Bold(true)

	elapsed := time.Since(m.started).Truncate(100 * time.Millisecond)
	lines := []string{
		"  " + label.Render("Scanned") + value.Render(fmt.Sprintf("%d entries", m.snap.Scanned)),
		"  " + label.Render("Candidates") + value.Render(fmt.Sprintf("%d  (%s)", m.snap.Matched, core.FormatSize(m.snap.Bytes))),
		"  " + label.Render("Skipped") + value.Render(fmt.Sprintf("%d", m.snap.Skipped)),
		"  " + label.Render("Elapsed") + value.Render(elapsed.String()),
		"  " + label.Render("Rate") + sparkline(m.RateHistory, 40),
	}
	if m.warnings > 0 {
		lines = append(lines, "  "+ui.TagWarningStyle().Render(fmt.Sprintf(" %d warning(s) ", m.warnings)))
	}
	return strings.Join(lines, "\n")
}

// ─── Volumes ─────────────────────────────────────────────────────────────────

func (m Model) renderVolumes(w int) string {
	barW := 30
	if w > 110 {
		barW = 44
	}
	var lines []string
	for _, v := range m.volumes {
		lines = append(lines,
			fmt.Sprintf("  %s  %5.1f%%  %s free of %s  %s",
				colorBar(v.UsedPercent, barW), v.UsedPercent,
				core.FormatSize(int64(v.Free)),
				core.FormatSize(int64(v.Total)),
				lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(v.Root)))
	}
	return strings.Join(lines, "\n")
}

// ─── Footer ──────────────────────────────────────────────────────────────────

func (m Model) renderStatusFooter() string {
	footer := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Italic(true).
		Render("  q cancel scan")

	if m.Err != nil {
		errStr := lipgloss.NewStyle().
			Foreground(ui.ColorError).
			Render("  " + ui.IconError + " " + m.Err.Error())
		return errStr + "\n" + footer
	}
	return footer
}

// ─── Drawing primitives ─────────────────────────────────────────────────────

// colorBar renders a ████░░░░ bar colored by how full the volume is.
func colorBar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := min(int(pct/100*float64(width)), width)

	barColor := ui.ColorSuccess
	switch {
	case pct >= 90:
		barColor = ui.ColorError
	case pct >= 75:
		barColor = ui.ColorOrange
	case pct >= 50:
		barColor = ui.ColorWarning
	}

	fStr := lipgloss.NewStyle().Foreground(barColor).Render(strings.Repeat("█", filled))
	eStr := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(strings.Repeat("░", width-filled))
	return fStr + eStr
}

// sparkline renders a mini chart from data using block chars.
func sparkline(data []float64, width int) string {
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	var maxVal float64
	for _, v := range data {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	d := data
	if len(d) > width {
		d = d[len(d)-width:]
	}

	var b strings.Builder
	for _, v := range d {
		idx := min(max(int(v/maxVal*7), 0), 7)
		b.WriteRune(blocks[idx])
	}
	for i := len(d); i < width; i++ {
		b.WriteRune(blocks[0])
	}
	return lipgloss.NewStyle().Foreground(ui.ColorSecondary).Render(b.String())
}
