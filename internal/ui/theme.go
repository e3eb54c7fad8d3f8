// Package ui holds the shared palette, glyphs and styles of the terminal
// views.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// ─── Palette ─────────────────────────────────────────────────────────────────

var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0891b2", Dark: "#22d3ee"}
	ColorCoral     = lipgloss.AdaptiveColor{Light: "#e11d48", Dark: "#fb7185"}
	ColorText      = lipgloss.AdaptiveColor{Light: "#1f2937", Dark: "#e5e7eb"}
	ColorTextDim   = lipgloss.AdaptiveColor{Light: "#4b5563", Dark: "#9ca3af"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#9ca3af", Dark: "#6b7280"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#16a34a", Dark: "#4ade80"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#ca8a04", Dark: "#facc15"}
	ColorOrange    = lipgloss.AdaptiveColor{Light: "#ea580c", Dark: "#fb923c"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
)

// ─── Glyphs ──────────────────────────────────────────────────────────────────

const (
	IconDiamond  = "◆"
	IconChevron  = "›"
	IconBullet   = "•"
	IconFolder   = "▸ "
	IconBlock    = "▌"
	IconPipe     = "│"
	IconCheck    = "✓"
	IconCross    = "✗"
	IconWarning  = "⚠"
	IconError    = "✗"
	IconLock     = "🔒"
	IconSelected = "[x]"
	IconEmpty    = "[ ]"
)

// ─── Styles ──────────────────────────────────────────────────────────────────

// HintBarStyle renders the key-hint line at the bottom of a view.
func HintBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}

// TagWarningStyle renders a small inverted warning tag.
func TagWarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(ColorWarning).
		Bold(true)
}

// RiskColor maps a risk level to its display color.
func RiskColor(r core.RiskLevel) lipgloss.TerminalColor {
	switch r {
	case core.RiskSafe:
		return ColorSuccess
	case core.RiskLow:
		return ColorSecondary
	case core.RiskMedium:
		return ColorWarning
	case core.RiskHigh:
		return ColorOrange
	default:
		return ColorError
	}
}

// RiskBadge renders a fixed-width risk label.
func RiskBadge(r core.RiskLevel) string {
	return lipgloss.NewStyle().
		Foreground(RiskColor(r)).
		Bold(r >= core.RiskHigh).
		Width(8).
		Render(strings.ToUpper(r.String()))
}

// FormatSize renders a byte count for display.
func FormatSize(n int64) string { return core.FormatSize(n) }

// GradientBar renders a horizontal bar filled to pct percent, shading from
// green to red as it fills.
func GradientBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(lipgloss.NewStyle().Foreground(ColorMuted).Render("░"))
			continue
		}
		color := ColorSuccess
		switch pos := float64(i) / float64(width); {
		case pos > 0.75:
			color = ColorError
		case pos > 0.5:
			color = ColorOrange
		case pos > 0.25:
			color = ColorWarning
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render("█"))
	}
	return b.String()
}
