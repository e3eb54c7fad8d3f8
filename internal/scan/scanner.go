// Package scan walks directory trees in parallel and streams files at or
// above a size threshold.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// DefaultExclude lists version-control metadata directories that are never
// entered.
var DefaultExclude = []string{".git", ".hg", ".svn"}

// IOError is a recovered per-path failure (permission denied, vanished
// entry).
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// Options configures a Scanner.
type Options struct {
	// Threshold is the minimum file size in bytes; smaller files are counted
	// but not emitted.
	Threshold int64

	// Workers bounds the number of concurrent directory readers. Zero means
	// the logical CPU count.
	Workers int

	// Exclude is a list of directory names (case-insensitive) to skip, in
	// addition to DefaultExclude.
	Exclude []string

	// Buffer is the capacity of the result channel. Zero means Workers*2.
	Buffer int

	Progress *core.Progress
	Warnings *core.Warnings
}

// Scanner performs one parallel scan. A Scanner is single-use.
type Scanner struct {
	opts     Options
	exclude  map[string]bool
	logger   *zap.Logger
	progress *core.Progress
	warnings *core.Warnings

	started bool
	mu      sync.Mutex
}

// DefaultWorkers returns the logical CPU count reported by the OS.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// NewScanner creates a scanner with bounded concurrency.
func NewScanner(opts Options, logger *zap.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = opts.Workers * 2
	}
	if opts.Progress == nil {
		opts.Progress = &core.Progress{}
	}
	if opts.Warnings == nil {
		opts.Warnings = &core.Warnings{}
	}
	excMap := make(map[string]bool, len(DefaultExclude)+len(opts.Exclude))
	for _, e := range append(append([]string(nil), DefaultExclude...), opts.Exclude...) {
		excMap[strings.ToLower(e)] = true
	}
	return &Scanner{
		opts:     opts,
		exclude:  excMap,
		logger:   logger,
		progress: opts.Progress,
		warnings: opts.Warnings,
	}
}

// Warnings returns any warnings accumulated during scanning.
func (s *Scanner) Warnings() []error {
	return s.warnings.List()
}

// ScannedCount returns the number of entries scanned so far.
func (s *Scanner) ScannedCount() int64 {
	return s.progress.Snapshot().Scanned
}

func (s *Scanner) addWarning(op, path string, err error) {
	s.warnings.Add(&IOError{Op: op, Path: path, Err: err})
	s.logger.Debug("skipping path", zap.String("op", op), zap.String("path", path), zap.Error(err))
}

// Scan walks roots and streams every regular file whose size is at least
// the threshold. Symlinks and junctions are never followed. The channel is
// closed when the walk finishes or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, roots []string) <-chan core.FileRecord {
	out := make(chan core.FileRecord, s.opts.Buffer)

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		close(out)
		return out
	}
	s.started = true
	s.mu.Unlock()

	q := newDirQueue()
	stop := context.AfterFunc(ctx, q.close)

	var files []fileRoot
	for _, root := range DedupRoots(roots) {
		info, err := os.Lstat(core.LongPath(root))
		switch {
		case err != nil:
			s.addWarning("stat", root, err)
		case info.Mode()&fs.ModeSymlink != 0:
			s.addWarning("stat", root, fmt.Errorf("root is a symlink"))
		case info.IsDir():
			q.push(root)
		default:
			files = append(files, fileRoot{path: root, info: info})
		}
	}

	var wg sync.WaitGroup
	if len(files) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, f := range files {
				if !s.emit(ctx, f.path, f.info, out) {
					return
				}
			}
		}()
	}
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				dir, ok := q.pop()
				if !ok {
					return
				}
				s.readDir(ctx, dir, q, out)
				q.done()
			}
		}()
	}

	go func() {
		wg.Wait()
		stop()
		close(out)
	}()
	return out
}

type fileRoot struct {
	path string
	info fs.FileInfo
}

func (s *Scanner) readDir(ctx context.Context, dir string, q *dirQueue, out chan<- core.FileRecord) {
	if ctx.Err() != nil {
		return
	}
	entries, err := os.ReadDir(core.LongPath(dir))
	if err != nil {
		s.addWarning("read", dir, err)
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		childPath := filepath.Join(dir, e.Name())
		s.progress.AddScanned(1)

		if e.Type()&fs.ModeSymlink != 0 {
			s.progress.AddSkipped(1)
			continue
		}
		if e.IsDir() {
			if s.exclude[strings.ToLower(e.Name())] {
				s.progress.AddSkipped(1)
				continue
			}
			// NEVER follow junction points / reparse points.
			if core.IsReparsePoint(childPath) {
				s.progress.AddSkipped(1)
				continue
			}
			q.push(childPath)
			continue
		}

		info, err := e.Info()
		if err != nil {
			// Permission denied or vanished: skip, don't fail.
			s.addWarning("stat", childPath, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if !s.emit(ctx, childPath, info, out) {
			return
		}
	}
}

// emit sends a record for a file at or above the threshold. It returns
// false if ctx was cancelled while sending.
func (s *Scanner) emit(ctx context.Context, path string, info fs.FileInfo, out chan<- core.FileRecord) bool {
	if info.Size() < s.opts.Threshold {
		return true
	}
	rec := core.FileRecord{
		Path:       path,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		AccessTime: core.AccessTime(path, info),
	}
	select {
	case out <- rec:
		s.progress.AddMatched(rec.Size)
		return true
	case <-ctx.Done():
		return false
	}
}

// DedupRoots cleans roots and drops any root equal to or nested inside
// another, so no file is reported twice.
func DedupRoots(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		cleaned = append(cleaned, filepath.Clean(r))
	}
	sort.Strings(cleaned)

	var out []string
next:
	for _, r := range cleaned {
		for _, kept := range out {
			if isWithin(r, kept) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

func isWithin(path, root string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
