// Package gitindex discovers git repositories and answers tracked/ignored
// queries for paths beneath them.
package gitindex

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

var errDiscoveryAborted = errors.New("repository discovery was cancelled")

// Entry is the git state of one path.
type Entry struct {
	Tracked bool
	Status  core.GitStatus
}

type discovery struct {
	root string
	done chan struct{}

	// aborted is set when the walk stopped early because its context ended.
	aborted atomic.Bool
}

// Index is a session-scoped cache of repository state. Repositories build
// concurrently with each other and with scanning; each one builds serially.
type Index struct {
	logger   *zap.Logger
	warnings *core.Warnings

	mu          sync.RWMutex
	repos       map[string]*Repo
	roots       []string // registered repo roots, longest first
	discoveries []*discovery

	discovering sync.WaitGroup
	builds      errgroup.Group
}

// NewIndex creates an empty index. Warnings about unreadable repositories
// are recorded in warnings.
func NewIndex(logger *zap.Logger, warnings *core.Warnings) *Index {
	if warnings == nil {
		warnings = &core.Warnings{}
	}
	ix := &Index{
		logger:   logger,
		warnings: warnings,
		repos:    make(map[string]*Repo),
	}
	ix.builds.SetLimit(runtime.NumCPU())
	return ix
}

// Start begins discovering repositories that contain or lie beneath root
// and returns immediately. A root equal to or inside one already being
// discovered reuses that walk, unless it was aborted.
func (ix *Index) Start(ctx context.Context, root string) {
	root = filepath.Clean(root)

	ix.mu.Lock()
	for _, d := range ix.discoveries {
		if within(root, d.root) && !d.aborted.Load() {
			ix.mu.Unlock()
			return
		}
	}
	d := &discovery{root: root, done: make(chan struct{})}
	ix.discoveries = append(ix.discoveries, d)
	ix.mu.Unlock()

	ix.discovering.Add(1)
	go func() {
		defer ix.discovering.Done()
		defer close(d.done)
		ix.discover(ctx, d.root)
		if ctx.Err() != nil {
			d.aborted.Store(true)
		}
	}()
}

// Discover runs discovery for root and waits for every repository build.
func (ix *Index) Discover(ctx context.Context, root string) error {
	ix.Start(ctx, root)
	return ix.Wait(ctx)
}

// Wait blocks until all started discoveries and builds have finished.
func (ix *Index) Wait(ctx context.Context) error {
	ix.discovering.Wait()
	_ = ix.builds.Wait()
	return ctx.Err()
}

// Repos returns the discovered repositories sorted by root.
func (ix *Index) Repos() []*Repo {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Repo, 0, len(ix.repos))
	for _, r := range ix.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].root < out[j].root })
	return out
}

// Warnings returns the recorded repository errors.
func (ix *Index) Warnings() []error {
	return ix.warnings.List()
}

func (ix *Index) discover(ctx context.Context, root string) {
	// The enclosing repository, if root is inside one.
	for dir := root; ; {
		if hasGitDir(dir) {
			ix.register(dir)
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	rootGit := filepath.Join(root, ".git")
	err := filepath.WalkDir(core.LongPath(root), func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".git" {
			if path != rootGit {
				ix.register(filepath.Dir(path))
			}
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && core.IsReparsePoint(path) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		ix.logger.Debug("repository discovery stopped", zap.String("root", root), zap.Error(err))
	}
}

// register records a repository root once and schedules its build.
func (ix *Index) register(root string) {
	ix.mu.Lock()
	if _, ok := ix.repos[pathKey(root)]; ok {
		ix.mu.Unlock()
		return
	}
	r := newRepo(root)
	ix.repos[pathKey(root)] = r
	ix.roots = append(ix.roots, root)
	sort.Slice(ix.roots, func(i, j int) bool { return len(ix.roots[i]) > len(ix.roots[j]) })
	ix.mu.Unlock()

	ix.logger.Debug("repository discovered", zap.String("root", root))
	ix.builds.Go(func() error {
		defer close(r.ready)
		r.build()
		if r.err != nil {
			ix.warnings.Add(r.err)
			ix.logger.Warn("repository unreadable, treating its files as unverified",
				zap.String("root", root), zap.Error(r.err))
		} else {
			ix.logger.Debug("repository indexed",
				zap.String("root", root), zap.Int("tracked", len(r.files)))
		}
		return nil
	})
}

// Lookup resolves path to its owning repository's state. It blocks until
// discovery of the enclosing scan root and that repository's build are
// done. A cancelled context yields GitUnverified.
func (ix *Index) Lookup(ctx context.Context, path string, isDir bool) Entry {
	path = filepath.Clean(path)
	if err := ix.waitDiscovery(ctx, path); err != nil {
		return Entry{Status: core.GitUnverified}
	}
	r := ix.owner(path)
	if r == nil {
		return Entry{Status: core.GitNotInRepo}
	}
	select {
	case <-r.ready:
	case <-ctx.Done():
		return Entry{Status: core.GitUnverified}
	}
	return r.lookup(path, isDir)
}

// Recheck rebuilds the owning repository's state from disk for one path,
// bypassing the cache. It is used to revalidate right before deletion.
func (ix *Index) Recheck(ctx context.Context, path string, isDir bool) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{Status: core.GitUnverified}, err
	}
	path = filepath.Clean(path)
	root := findRepoRoot(filepath.Dir(path))
	if isDir && hasGitDir(path) {
		root = path
	}
	if root == "" {
		return Entry{Status: core.GitNotInRepo}, nil
	}
	r := newRepo(root)
	r.build()
	close(r.ready)
	if r.err != nil {
		return Entry{Status: core.GitUnverified}, r.err
	}
	return r.lookup(path, isDir), nil
}

// waitDiscovery waits for every discovery covering path. Coverage only by
// aborted walks is an error: repositories beneath path may have been missed.
func (ix *Index) waitDiscovery(ctx context.Context, path string) error {
	ix.mu.RLock()
	ds := append([]*discovery(nil), ix.discoveries...)
	ix.mu.RUnlock()

	covered, complete := false, false
	for _, d := range ds {
		if !within(path, d.root) {
			continue
		}
		covered = true
		select {
		case <-d.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !d.aborted.Load() {
			complete = true
		}
	}
	if covered && !complete {
		return errDiscoveryAborted
	}
	return nil
}

func (ix *Index) owner(path string) *Repo {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, root := range ix.roots {
		if within(path, root) {
			return ix.repos[pathKey(root)]
		}
	}
	return nil
}

// within reports whether path equals root or lies beneath it.
func within(path, root string) bool {
	path, root = pathKey(path), pathKey(root)
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
