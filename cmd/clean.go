package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lakshaymaurya-felt/sweep/internal/config"
)

// languageFlags maps a clean flag to the project plugin it enables.
var languageFlags = []string{"javascript", "python", "rust", "java", "dotnet"}

var cleanCmd = &cobra.Command{
	Use:   "clean [paths...]",
	Short: "Find large files and pick what to delete",
	Long: `Scan the given paths (default: current directory) for files above the
size threshold and open an interactive list to choose what to delete.

Language flags add the matching project-artifact plugin to the scan, e.g.
--python also reports virtualenvs and __pycache__ directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyLanguageFlags(cmd); err != nil {
			return err
		}
		return runSession(cmd, args, config.Defaults())
	},
}

// applyLanguageFlags appends the plugin of every language flag set to the
// --plugins list.
func applyLanguageFlags(cmd *cobra.Command) error {
	fs := cmd.Flags()
	var extra []string
	for _, name := range languageFlags {
		if on, _ := fs.GetBool(name); on {
			extra = append(extra, name)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	// The first Set on a slice flag replaces its default.
	if !fs.Changed("plugins") {
		if err := fs.Set("plugins", "large-files"); err != nil {
			return err
		}
	}
	for _, name := range extra {
		if err := fs.Set("plugins", name); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	addScanFlags(cleanCmd.Flags(), config.Defaults())
	for _, name := range languageFlags {
		cleanCmd.Flags().Bool(name, false, "Also clean "+name+" project artifacts")
	}
}
