//go:build !linux && !openbsd && !darwin && !freebsd && !netbsd && !windows

package core

import (
	"io/fs"
	"time"
)

// AccessTime falls back to the modification time on platforms without a
// portable access-time field.
func AccessTime(_ string, info fs.FileInfo) time.Time { return info.ModTime() }

func IsReparsePoint(string) bool { return false }

func LongPath(path string) string { return path }
