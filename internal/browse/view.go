package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
	"github.com/lakshaymaurya-felt/sweep/internal/ui"
)

// ─── Top-level view ──────────────────────────────────────────────────────────

func (m Model) renderView() string {
	if m.ctrl.State().Terminal() {
		return ""
	}
	w := m.width
	if w < 40 {
		w = 40
	}

	f := m.ctrl.Frame()

	var s strings.Builder
	s.WriteString(m.renderHeader(f, w))
	s.WriteString("\n")
	if f.Help {
		s.WriteString(m.renderHelp())
	} else {
		s.WriteString(m.renderBody(f, w))
	}
	s.WriteString("\n")
	s.WriteString(m.renderFooter(f))
	return s.String()
}

// ─── Header ──────────────────────────────────────────────────────────────────

func (m Model) renderHeader(f selection.Frame, w int) string {
	label := " Cleanup candidates"
	if m.opts.DryRun {
		label += " (dry run)"
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.ColorCoral).
		Render("  " + ui.IconDiamond + label)

	rootLine := lipgloss.NewStyle().
		Foreground(ui.ColorTextDim).
		Render("  " + strings.Join(m.opts.Roots, ", "))

	stats := fmt.Sprintf("  %d shown of %d  %s  %d selected, %s  %s  sort: %s",
		len(f.Rows), f.Total, ui.IconPipe,
		f.SelectedCount, ui.FormatSize(f.SelectedBytes), ui.IconPipe, f.Sort)
	if f.Filter != "" || f.Editing {
		stats += fmt.Sprintf("  %s  filter: %s", ui.IconPipe, f.Filter)
	}
	statLine := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(stats)

	inner := lipgloss.JoinVertical(lipgloss.Left, title, rootLine, statLine)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorCoral).
		Width(w - 2).
		Render(inner)
}

// ─── Body (candidate list) ───────────────────────────────────────────────────

func (m Model) renderBody(f selection.Frame, w int) string {
	if len(f.Rows) == 0 {
		msg := "  (nothing to clean)"
		if f.Filter != "" {
			msg = "  (no candidates match the filter)"
		}
		return lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Italic(true).
			Render(msg)
	}

	vh := m.viewportHeight()
	var lines []string
	for i := m.offset; i < len(f.Rows) && i < m.offset+vh; i++ {
		lines = append(lines, m.renderRow(f.Rows[i], w))
	}

	if len(f.Rows) > vh {
		pct := float64(m.offset) / float64(len(f.Rows)-vh) * 100
		lines = append(lines, lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Italic(true).
			Render(fmt.Sprintf("  ── %d/%d items  (%.0f%%) ──", min(m.offset+vh, len(f.Rows)), len(f.Rows), pct)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r selection.Row, w int) string {
	mark := ui.IconEmpty
	switch {
	case r.Selected:
		mark = lipgloss.NewStyle().Foreground(ui.ColorSuccess).Bold(true).Render(ui.IconSelected)
	case r.Locked:
		mark = lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("[-]")
	}

	pathColor := ui.ColorText
	if r.Locked {
		pathColor = ui.ColorMuted
	}
	maxPath := w - 40
	if maxPath < 16 {
		maxPath = 16
	}
	path := lipgloss.NewStyle().Foreground(pathColor).Render(truncateLeft(r.Path, maxPath))

	size := fmt.Sprintf("%10s", r.Size)
	age := lipgloss.NewStyle().Foreground(ui.ColorTextDim).Render(fmt.Sprintf("%4s", r.Age))

	line := fmt.Sprintf("  %s %s %s %s  %s", mark, ui.RiskBadge(r.Risk), size, age, path)
	if r.Cursor {
		cursor := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Render(ui.IconBlock)
		line = " " + cursor + line[2:]
		if r.Reason != "" {
			line += lipgloss.NewStyle().Foreground(ui.ColorMuted).Italic(true).Render("  " + r.Reason)
		}
		if m.confirming {
			line += lipgloss.NewStyle().
				Foreground(ui.ColorError).
				Bold(true).
				Render("  " + ui.IconWarning + " Press Enter to delete")
		}
	}
	return line
}

// ─── Help overlay ────────────────────────────────────────────────────────────

func (m Model) renderHelp() string {
	keyStyle := lipgloss.NewStyle().Foreground(ui.ColorCoral).Bold(true).Width(10)
	descStyle := lipgloss.NewStyle().Foreground(ui.ColorText)

	var lines []string
	for _, b := range m.keys.FullHelp() {
		h := b.Help()
		lines = append(lines, "  "+keyStyle.Render(h.Key)+descStyle.Render(h.Desc))
	}
	lines = append(lines, "")
	for r := core.RiskSafe; r <= core.RiskCritical; r++ {
		lines = append(lines, "  "+ui.RiskBadge(r)+" "+descStyle.Render(riskLegend[r]))
	}
	return strings.Join(lines, "\n")
}

var riskLegend = map[core.RiskLevel]string{
	core.RiskSafe:     "regenerable or old, nothing points at it",
	core.RiskLow:      "large media or archive, unused for a while",
	core.RiskMedium:   "test data or fixtures",
	core.RiskHigh:     "recently used, a database, or git cannot vouch for it",
	core.RiskCritical: "tracked, modified or protected; never selectable",
}

// ─── Footer ──────────────────────────────────────────────────────────────────

func (m Model) renderFooter(f selection.Frame) string {
	var lines []string

	if f.Editing {
		prompt := lipgloss.NewStyle().Foreground(ui.ColorCoral).Bold(true).Render("  / ")
		cursor := lipgloss.NewStyle().Foreground(ui.ColorCoral).Render("▎")
		lines = append(lines, prompt+lipgloss.NewStyle().Foreground(ui.ColorText).Render(f.Filter)+cursor)
	} else if f.Notice != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(ui.ColorWarning).
			Render("  "+ui.IconWarning+" "+f.Notice))
	} else {
		lines = append(lines, "")
	}

	var hints []string
	if f.Editing {
		hints = []string{"enter apply", "esc clear", "↑/↓ move"}
	} else {
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, h.Key+" "+h.Desc)
		}
	}
	lines = append(lines, ui.HintBarStyle().Render("  "+strings.Join(hints, "  "+ui.IconBullet+"  ")))
	return strings.Join(lines, "\n")
}

// truncateLeft keeps the tail of a path, which is the informative part.
func truncateLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
