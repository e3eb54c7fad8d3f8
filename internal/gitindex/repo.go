package gitindex

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// RepositoryError reports a repository whose metadata could not be read.
// Every path beneath Root is treated as unverified.
type RepositoryError struct {
	Root string
	Err  error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("git repository %s: %v", e.Root, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// indexStat is the worktree stat recorded in the git index for one entry.
type indexStat struct {
	size    uint32
	modTime time.Time
}

// Repo is the cached state of one repository. It is written once by build
// and read-only afterwards.
type Repo struct {
	root  string
	ready chan struct{}
	err   error

	files  map[string]indexStat
	dirs   map[string]bool
	ignore gitignore.Matcher
}

func newRepo(root string) *Repo {
	return &Repo{
		root:  root,
		ready: make(chan struct{}),
		files: make(map[string]indexStat),
		dirs:  make(map[string]bool),
	}
}

// Root returns the repository's worktree root.
func (r *Repo) Root() string { return r.root }

// Err returns the error that made the repository unverifiable, if any.
func (r *Repo) Err() error { return r.err }

// build reads the index and ignore rules. It runs exactly once per Repo.
func (r *Repo) build() {
	repo, err := git.PlainOpenWithOptions(r.root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		r.err = &RepositoryError{Root: r.root, Err: err}
		return
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		r.err = &RepositoryError{Root: r.root, Err: fmt.Errorf("read index: %w", err)}
		return
	}

	for _, e := range idx.Entries {
		p := filepath.Join(r.root, filepath.FromSlash(e.Name))
		r.files[pathKey(p)] = indexStat{size: e.Size, modTime: e.ModifiedAt}
		for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
			k := pathKey(dir)
			if r.dirs[k] {
				break
			}
			r.dirs[k] = true
			if len(dir) <= len(r.root) {
				break
			}
		}
	}

	patterns, err := gitignore.ReadPatterns(osfs.New(r.root), nil)
	if err != nil {
		// Missing ignore rules only make files look less ignorable.
		patterns = nil
	}
	patterns = append(patterns, readExclude(filepath.Join(r.root, ".git", "info", "exclude"))...)
	r.ignore = gitignore.NewMatcher(patterns)
}

// lookup answers from the cache plus one stat for tracked files.
func (r *Repo) lookup(path string, isDir bool) Entry {
	if r.err != nil {
		return Entry{Status: core.GitUnverified}
	}
	k := pathKey(path)
	if st, ok := r.files[k]; ok {
		return Entry{Tracked: true, Status: modifiedStatus(path, st)}
	}
	if r.dirs[k] {
		return Entry{Tracked: true, Status: core.GitTracked}
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == "." {
		return Entry{Status: core.GitUntracked}
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if r.ignore != nil && r.ignore.Match(parts, isDir) {
		return Entry{Status: core.GitIgnored}
	}
	return Entry{Status: core.GitUntracked}
}

func modifiedStatus(path string, st indexStat) core.GitStatus {
	info, err := os.Lstat(core.LongPath(path))
	if err != nil {
		return core.GitTracked
	}
	if uint32(info.Size()) != st.size || info.ModTime().Unix() != st.modTime.Unix() {
		return core.GitModified
	}
	return core.GitTracked
}

func readExclude(path string) []gitignore.Pattern {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var ps []gitignore.Pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return ps
}

// hasGitDir reports whether dir contains a .git directory or gitdir file.
// Errors other than absence count as present so the repository ends up
// unverified instead of silently untracked.
func hasGitDir(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR)
}

// findRepoRoot walks up from path to the nearest directory holding .git.
func findRepoRoot(path string) string {
	for dir := path; ; {
		if hasGitDir(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func pathKey(p string) string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.ToLower(p)
	}
	return p
}
