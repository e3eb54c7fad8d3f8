package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/session"
	"github.com/lakshaymaurya-felt/sweep/internal/ui"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List available cleanup plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags(), nil, config.Defaults())
		if err != nil {
			return err
		}
		s, err := session.New(cfg, nil, metrics.New())
		if err != nil {
			return err
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorMuted)).
			Headers("PLUGIN", "VERSION", "DEFAULT", "DETAILS").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Bold(true).Foreground(ui.ColorCoral).Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
		for _, d := range s.Registry().Descriptors() {
			enabled := ""
			if d.Enabled {
				enabled = ui.IconCheck
			}
			t.Row(d.Name, d.Version, enabled, describe(d.Config))
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// describe flattens a plugin's config map into one line.
func describe(cfg map[string]string) string {
	if d, ok := cfg["description"]; ok {
		return d
	}
	var parts []string
	for k, v := range cfg {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
