package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/sweep/internal/config"
)

// purgeDefaults enables every project plugin with a low threshold.
func purgeDefaults() config.Config {
	def := config.Defaults()
	def.MinSize = "1MB"
	def.Plugins = config.ProjectKindNames()
	return def
}

var purgeCmd = &cobra.Command{
	Use:   "purge [paths...]",
	Short: "Clean project build artifacts",
	Long: "Find and remove build artifacts (" + strings.Join(config.ProjectKindNames(), ", ") + `)
from project directories. Recently built projects are marked high risk and
artifacts containing protected files are never selectable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd, args, purgeDefaults())
	},
}

func init() {
	addScanFlags(purgeCmd.Flags(), purgeDefaults())
}
