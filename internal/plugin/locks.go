package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// PathLocks hands out exclusive claims on directory trees. Two claims
// conflict when any path of one equals, contains or is contained by a path
// of the other.
type PathLocks struct {
	mu   sync.Mutex
	cond *sync.Cond
	held map[string]int
}

// NewPathLocks creates an empty lock table.
func NewPathLocks() *PathLocks {
	l := &PathLocks{held: make(map[string]int)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until none of paths overlaps a held claim, then claims them
// all at once. The returned release must be called exactly once.
func (l *PathLocks) Acquire(ctx context.Context, paths []string) (func(), error) {
	claim := make([]string, 0, len(paths))
	for _, p := range paths {
		claim = append(claim, filepath.Clean(p))
	}

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	for l.conflicts(claim) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, p := range claim {
		l.held[p]++
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			for _, p := range claim {
				if l.held[p]--; l.held[p] <= 0 {
					delete(l.held, p)
				}
			}
			l.cond.Broadcast()
			l.mu.Unlock()
		})
	}, nil
}

func (l *PathLocks) conflicts(claim []string) bool {
	for held := range l.held {
		for _, p := range claim {
			if overlaps(held, p) {
				return true
			}
		}
	}
	return false
}

func overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

// within reports whether path is root or lies beneath it.
func within(path, root string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
