package cmd

import (
	"github.com/spf13/pflag"

	"github.com/lakshaymaurya-felt/sweep/internal/config"
)

// addScanFlags registers the flags shared by every scanning command. Flag
// names are the config keys, so viper binds them directly.
func addScanFlags(fs *pflag.FlagSet, def config.Config) {
	fs.String("min-size", def.MinSize, "Minimum size of a candidate (e.g. 100MB, 1GiB)")
	fs.Int("older-than", def.OlderThanDays, "Only show candidates not accessed for this many days (0 = any age)")
	fs.Int("recent-days", def.RecentDays, "Files used within this many days are high risk")
	fs.Int("workers", def.Workers, "Parallel scan workers")
	fs.StringSlice("exclude", def.Exclude, "Directory names to skip")
	fs.Bool("include-tracked", false, "Score git-tracked files by content instead of marking them critical")
	fs.Bool("include-protected", false, "Allow critical candidates to be selected and deleted")
	fs.StringSlice("protect-ext", nil, "Extra extensions that are never deleted (e.g. .psd)")
	fs.StringSlice("protect", nil, "Extra glob patterns that are never deleted")
	fs.StringSlice("test-data", nil, "Extra glob patterns for test data directories")
	fs.StringSlice("plugins", def.Plugins, "Plugins to run")
	fs.Bool("dry-run", false, "Show what would be deleted without deleting")
}
