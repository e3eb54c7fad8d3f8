package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNeverDelete is returned when a deletion targets a system or home root.
var ErrNeverDelete = errors.New("refusing to delete protected system path")

// neverDeletePaths returns paths that must never be removed, whatever the
// caller asks for.
func neverDeletePaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if runtime.GOOS == "windows" {
		for _, env := range []string{"WINDIR", "PROGRAMFILES", "PROGRAMFILES(X86)", "PROGRAMDATA", "USERPROFILE"} {
			if v := os.Getenv(env); v != "" {
				paths = append(paths, v)
			}
		}
		return paths
	}
	return append(paths,
		"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
		"/opt", "/proc", "/root", "/sbin", "/sys", "/usr", "/var",
		"/Applications", "/Library", "/System", "/Users",
	)
}

// IsNeverDelete reports whether path is a volume root or one of the
// hard-coded system locations.
func IsNeverDelete(path string) bool {
	clean := filepath.Clean(path)
	if vol := filepath.VolumeName(clean); vol != "" && strings.TrimRight(clean[len(vol):], `\/`) == "" {
		return true
	}
	for _, p := range neverDeletePaths() {
		if samePath(clean, filepath.Clean(p)) {
			return true
		}
	}
	return false
}

func samePath(a, b string) bool {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// SafeDelete removes path and returns the number of bytes freed. Symlinks are
// removed without touching their targets. With dryRun set, nothing is
// removed and the would-be size is returned.
func SafeDelete(path string, dryRun bool) (int64, error) {
	if path == "" || !filepath.IsAbs(path) {
		return 0, fmt.Errorf("delete %q: path must be absolute", path)
	}
	if IsNeverDelete(path) {
		return 0, fmt.Errorf("delete %s: %w", path, ErrNeverDelete)
	}

	info, err := os.Lstat(LongPath(path))
	if err != nil {
		return 0, err
	}

	var size int64
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		size = 0
	case info.IsDir():
		size, err = DirSize(path)
		if err != nil && !dryRun {
			return 0, err
		}
	default:
		size = info.Size()
	}

	if dryRun {
		return size, nil
	}

	if info.IsDir() {
		err = os.RemoveAll(LongPath(path))
	} else {
		err = os.Remove(LongPath(path))
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

// DirSize sums the sizes of regular files beneath root. Symlinks and reparse
// points are never followed.
func DirSize(root string) (int64, error) {
	var total int64
	err := WalkTree(root, func(path string, info fs.FileInfo) error {
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// WalkTree calls fn for every entry beneath root (root excluded) without
// following symlinks or junctions. Unreadable entries are skipped.
func WalkTree(root string, fn func(path string, info fs.FileInfo) error) error {
	return WalkTreeReport(root, fn, nil)
}

// WalkTreeReport is WalkTree that also calls onSkip, when non-nil, for every
// entry below root that could not be read.
func WalkTreeReport(root string, fn func(path string, info fs.FileInfo) error, onSkip func(path string, err error)) error {
	skip := func(path string, err error) {
		if onSkip != nil {
			onSkip(path, err)
		}
	}
	return filepath.WalkDir(LongPath(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == LongPath(root) {
				return err
			}
			skip(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == LongPath(root) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() && IsReparsePoint(path) {
			return filepath.SkipDir
		}
		info, err := d.Info()
		if err != nil {
			skip(path, err)
			return nil
		}
		return fn(path, info)
	})
}
