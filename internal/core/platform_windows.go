//go:build windows

package core

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// AccessTime returns the last access time of path, falling back to the
// modification time when it cannot be read.
func AccessTime(path string, info fs.FileInfo) time.Time {
	p, err := windows.UTF16PtrFromString(LongPath(path))
	if err != nil {
		return info.ModTime()
	}
	var data windows.Win32FileAttributeData
	if err := windows.GetFileAttributesEx(p, windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data))); err != nil {
		return info.ModTime()
	}
	return time.Unix(0, data.LastAccessTime.Nanoseconds())
}

// IsReparsePoint returns true if the path is a junction or symlink
// (FILE_ATTRIBUTE_REPARSE_POINT). Must be checked to avoid infinite recursion.
func IsReparsePoint(path string) bool {
	p, err := windows.UTF16PtrFromString(LongPath(path))
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}

// LongPath adds the \\?\ prefix for paths exceeding MAX_PATH.
func LongPath(path string) string {
	if len(path) >= 260 && !strings.HasPrefix(path, `\\?\`) {
		return `\\?\` + filepath.Clean(path)
	}
	return path
}
