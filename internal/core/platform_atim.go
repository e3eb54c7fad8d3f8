//go:build linux || openbsd

package core

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// AccessTime returns the last access time of path, falling back to the
// modification time when it cannot be read.
func AccessTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Unix())
}

// IsReparsePoint is always false outside Windows; symlinks are detected
// through the file mode.
func IsReparsePoint(string) bool { return false }

// LongPath is the identity outside Windows.
func LongPath(path string) string { return path }
