package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// Registry is a static set of plugins resolved from configuration at
// startup.
type Registry struct {
	logger  *zap.Logger
	plugins map[string]Plugin
	order   []string
	active  map[string]bool
	locks   *PathLocks
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		plugins: make(map[string]Plugin),
		active:  make(map[string]bool),
		locks:   NewPathLocks(),
	}
}

// Register adds p. Names must be unique.
func (r *Registry) Register(p Plugin) error {
	name := p.Descriptor().Name
	if name == "" {
		return errors.New("plugin has no name")
	}
	if _, ok := r.plugins[name]; ok {
		return fmt.Errorf("plugin %q registered twice", name)
	}
	r.plugins[name] = p
	r.order = append(r.order, name)
	return nil
}

// Activate enables exactly the named plugins. An unknown name is a
// configuration error and leaves the active set unchanged.
func (r *Registry) Activate(names []string) error {
	next := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := r.plugins[n]; !ok {
			return &config.Error{
				Field: "plugins",
				Msg:   fmt.Sprintf("unknown plugin %q (available: %s)", n, strings.Join(r.order, ", ")),
			}
		}
		next[n] = true
	}
	r.active = next
	return nil
}

// Descriptors lists every registered plugin in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		d := r.plugins[name].Descriptor()
		d.Enabled = r.active[name]
		out = append(out, d)
	}
	return out
}

// Active returns the enabled plugins in registration order.
func (r *Registry) Active() []Plugin {
	var out []Plugin
	for _, name := range r.order {
		if r.active[name] {
			out = append(out, r.plugins[name])
		}
	}
	return out
}

// Lookup returns the named plugin.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

// ─── Scan ────────────────────────────────────────────────────────────────────

// Scan runs every active plugin over every root concurrently and merges the
// results. Records are tagged with their plugin. When two plugins report the
// same path the more protective record wins, and anything beneath a reported
// directory is folded into that directory. The result is sorted by path.
//
// A failing plugin does not discard the others' results; its error is
// returned alongside them.
func (r *Registry) Scan(ctx context.Context, roots []string) ([]core.FileRecord, error) {
	active := r.Active()

	var (
		mu      sync.Mutex
		records []core.FileRecord
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, p := range active {
		name := p.Descriptor().Name
		for _, root := range roots {
			g.Go(func() error {
				recs, err := p.Scan(ctx, root)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					r.logger.Warn("plugin scan failed", zap.String("plugin", name), zap.String("root", root), zap.Error(err))
					errs = append(errs, fmt.Errorf("plugin %s: scan %s: %w", name, root, err))
				}
				for _, rec := range recs {
					rec.Plugin = name
					records = append(records, rec)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	merged := Merge(records)
	r.logger.Debug("scan merged",
		zap.Int("plugins", len(active)),
		zap.Int("reported", len(records)),
		zap.Int("merged", len(merged)),
	)
	return merged, errors.Join(errs...)
}

// Merge deduplicates records by path, keeping the higher risk, then folds
// every record lying beneath a directory record into its outermost such
// directory. The directory inherits the highest risk it absorbs.
func Merge(records []core.FileRecord) []core.FileRecord {
	byPath := make(map[string]core.FileRecord, len(records))
	for _, rec := range records {
		key := filepath.Clean(rec.Path)
		if prev, ok := byPath[key]; ok && !moreProtective(rec, prev) {
			continue
		}
		rec.Path = key
		byPath[key] = rec
	}

	// Find the outermost directory record above each path.
	outer := make(map[string]string)
	for p := range byPath {
		for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
			if rec, ok := byPath[dir]; ok && rec.IsDir && dir != p {
				outer[p] = dir
			}
			if parent := filepath.Dir(dir); parent == dir {
				break
			}
		}
	}

	for p, dir := range outer {
		child, parent := byPath[p], byPath[dir]
		if child.Risk > parent.Risk {
			parent.Risk = child.Risk
			parent.Reason = child.Reason
			byPath[dir] = parent
		}
	}

	out := make([]core.FileRecord, 0, len(byPath)-len(outer))
	for p, rec := range byPath {
		if _, folded := outer[p]; folded {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// moreProtective reports whether a should replace b for the same path.
func moreProtective(a, b core.FileRecord) bool {
	if a.Risk != b.Risk {
		return a.Risk > b.Risk
	}
	return a.Plugin < b.Plugin
}

// ─── Clean ───────────────────────────────────────────────────────────────────

// Clean hands each plugin its own records. Plugins run concurrently, but a
// plugin first claims every path it will touch, so no two plugins ever work
// on overlapping trees at the same time.
func (r *Registry) Clean(ctx context.Context, sel []core.FileRecord, dryRun bool) (clean.Report, error) {
	groups := make(map[string][]core.FileRecord)
	var names []string
	for _, rec := range sel {
		if _, ok := groups[rec.Plugin]; !ok {
			names = append(names, rec.Plugin)
		}
		groups[rec.Plugin] = append(groups[rec.Plugin], rec)
	}
	sort.Strings(names)

	reports := make([]clean.Report, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	for i, name := range names {
		recs := groups[name]
		p, ok := r.plugins[name]
		if !ok || !r.active[name] {
			for _, rec := range recs {
				reports[i].Results = append(reports[i].Results, clean.Result{
					Path: rec.Path, Plugin: name, Size: rec.Size,
					Outcome: clean.Skipped, Reason: "plugin not active",
				})
			}
			continue
		}

		g.Go(func() error {
			paths := make([]string, len(recs))
			for j, rec := range recs {
				paths[j] = rec.Path
			}
			release, err := r.locks.Acquire(ctx, paths)
			if err != nil {
				for _, rec := range recs {
					reports[i].Results = append(reports[i].Results, clean.Result{
						Path: rec.Path, Plugin: name, Size: rec.Size,
						Outcome: clean.Skipped, Reason: clean.ReasonCancelled,
					})
				}
				return nil
			}
			defer release()

			reports[i], errs[i] = p.Clean(ctx, recs, dryRun)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("plugin %s: clean: %w", name, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var total clean.Report
	for _, rep := range reports {
		total.Merge(rep)
	}
	return total, errors.Join(errs...)
}
