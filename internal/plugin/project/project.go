// Package project implements one generic plugin per project kind. Each
// instance finds build-artifact directories beneath recognized project
// roots using the static tables in config.
package project

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/classify"
	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/gitindex"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/plugin"
	"github.com/lakshaymaurya-felt/sweep/internal/risk"
	"github.com/lakshaymaurya-felt/sweep/internal/scan"
)

const (
	reasonContainsProtected  = "contains protected file"
	reasonContainsUnreadable = "contains unreadable entries"
)

// Options wires a project plugin to the session's shared components.
type Options struct {
	Kind config.ProjectKind

	// Threshold drops artifact directories smaller than this many bytes.
	Threshold int64
	Exclude   []string

	Classifier *classify.Classifier
	Engine     *risk.Engine
	Index      *gitindex.Index

	AllowCritical bool

	Progress *core.Progress
	Warnings *core.Warnings
	Metrics  *metrics.Metrics
}

// Plugin cleans the artifacts of one project kind.
type Plugin struct {
	opts    Options
	logger  *zap.Logger
	dirs    map[string]bool
	exclude map[string]bool

	mu       sync.Mutex
	detected map[string]bool
}

// New creates a plugin for opts.Kind.
func New(opts Options, logger *zap.Logger) *Plugin {
	if opts.Progress == nil {
		opts.Progress = &core.Progress{}
	}
	if opts.Warnings == nil {
		opts.Warnings = &core.Warnings{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Plugin{
		opts:     opts,
		logger:   logger.With(zap.String("plugin", opts.Kind.Name)),
		dirs:     make(map[string]bool, len(opts.Kind.Dirs)),
		exclude:  make(map[string]bool),
		detected: make(map[string]bool),
	}
	for _, d := range opts.Kind.Dirs {
		p.dirs[d] = true
	}
	for _, e := range append(append([]string(nil), scan.DefaultExclude...), opts.Exclude...) {
		p.exclude[strings.ToLower(e)] = true
	}
	return p
}

// NewAll creates one plugin per built-in project kind.
func NewAll(opts Options, logger *zap.Logger) []*Plugin {
	kinds := config.GetProjectKinds()
	out := make([]*Plugin, 0, len(kinds))
	for _, k := range kinds {
		o := opts
		o.Kind = k
		out = append(out, New(o, logger))
	}
	return out
}

func (p *Plugin) Descriptor() plugin.Descriptor {
	k := p.opts.Kind
	return plugin.Descriptor{
		Name:    k.Name,
		Version: k.Version,
		Config: map[string]string{
			"description": k.Description,
			"markers":     strings.Join(k.Markers, ","),
		},
	}
}

// DetectProject reports whether dir directly contains one of the kind's
// marker files. Results are cached for the plugin's lifetime.
func (p *Plugin) DetectProject(dir string) bool {
	dir = filepath.Clean(dir)
	p.mu.Lock()
	hit, ok := p.detected[dir]
	p.mu.Unlock()
	if ok {
		return hit
	}

	hit = len(p.markers(dir)) > 0

	p.mu.Lock()
	p.detected[dir] = hit
	p.mu.Unlock()
	return hit
}

// markers returns the marker files present in dir.
func (p *Plugin) markers(dir string) []string {
	entries, err := os.ReadDir(core.LongPath(dir))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchName(p.opts.Kind.Markers, e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func (p *Plugin) CleanablePatterns() []plugin.Pattern {
	k := p.opts.Kind
	var out []plugin.Pattern
	for _, d := range k.Dirs {
		out = append(out, plugin.Pattern{Glob: d, Dir: true, Description: k.Description})
	}
	for _, s := range k.Suffixes {
		out = append(out, plugin.Pattern{Glob: "*" + s, Dir: true, Description: k.Description})
	}
	for _, r := range k.Recursive {
		out = append(out, plugin.Pattern{Glob: "**/" + r, Dir: true, Description: k.Description})
	}
	return out
}

func (p *Plugin) ProtectedPatterns() []plugin.Pattern {
	var out []plugin.Pattern
	for _, g := range p.opts.Kind.Protected {
		out = append(out, plugin.Pattern{Glob: g, Description: "project settings"})
	}
	return out
}

// ─── Scan ────────────────────────────────────────────────────────────────────

// Scan walks root and reports every artifact directory of a detected
// project. Artifact directories are not descended into.
func (p *Plugin) Scan(ctx context.Context, root string) ([]core.FileRecord, error) {
	root = filepath.Clean(root)
	p.opts.Index.Start(ctx, root)

	var records []core.FileRecord
	err := filepath.WalkDir(root, func(fullPath string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if fullPath == root {
				return err
			}
			p.opts.Warnings.Add(&scan.IOError{Op: "read", Path: fullPath, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		p.opts.Progress.AddScanned(1)

		if !d.IsDir() || fullPath == root {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || core.IsReparsePoint(fullPath) {
			p.opts.Progress.AddSkipped(1)
			return filepath.SkipDir
		}
		if p.exclude[strings.ToLower(d.Name())] {
			p.opts.Progress.AddSkipped(1)
			return filepath.SkipDir
		}

		projectRoot, ok := p.artifactOf(fullPath, root)
		if !ok {
			return nil
		}
		rec, err := p.record(ctx, fullPath, projectRoot)
		if err != nil {
			p.opts.Warnings.Add(&scan.IOError{Op: "stat", Path: fullPath, Err: err})
			return filepath.SkipDir
		}
		if rec.Size >= p.opts.Threshold {
			p.opts.Progress.AddMatched(rec.Size)
			records = append(records, rec)
		}
		return filepath.SkipDir
	})
	if err != nil && !errors.Is(err, ctx.Err()) {
		return records, err
	}

	p.logger.Debug("scan finished", zap.String("root", root), zap.Int("artifacts", len(records)))
	return records, ctx.Err()
}

// artifactOf reports whether dir is an artifact directory and returns the
// project root it belongs to. Ancestors are not examined above scanRoot's
// parent.
func (p *Plugin) artifactOf(dir, scanRoot string) (string, bool) {
	k := p.opts.Kind
	name := filepath.Base(dir)
	parent := filepath.Dir(dir)

	if p.dirs[name] || hasSuffix(k.Suffixes, name) {
		if p.DetectProject(parent) {
			return parent, true
		}
	}

	if !contains(k.Recursive, name) {
		return "", false
	}
	stop := filepath.Dir(scanRoot)
	for anc := parent; ; anc = filepath.Dir(anc) {
		if p.DetectProject(anc) {
			return anc, true
		}
		if anc == stop || filepath.Dir(anc) == anc {
			return "", false
		}
	}
}

// projectRootOf finds the nearest ancestor of dir that is a project.
func (p *Plugin) projectRootOf(dir string) (string, bool) {
	for anc := filepath.Dir(dir); ; anc = filepath.Dir(anc) {
		if p.DetectProject(anc) {
			return anc, true
		}
		if filepath.Dir(anc) == anc {
			return "", false
		}
	}
}

// contents summarizes an artifact directory without following links.
type contents struct {
	size      int64
	protected bool

	// unreadable is set when part of the tree could not be inspected, so
	// a protected file may be hiding in it.
	unreadable bool
}

func (p *Plugin) measure(dir string) (contents, error) {
	var c contents
	err := core.WalkTreeReport(dir, func(path string, info fs.FileInfo) error {
		if info.Mode().IsRegular() {
			c.size += info.Size()
		}
		if p.isProtected(path) {
			c.protected = true
		}
		return nil
	}, func(path string, err error) {
		c.unreadable = true
		p.opts.Warnings.Add(&scan.IOError{Op: "measure", Path: path, Err: err})
	})
	return c, err
}

func (p *Plugin) isProtected(path string) bool {
	if matchName(p.opts.Kind.Protected, filepath.Base(path)) {
		return true
	}
	return p.opts.Classifier.MatchesProtected(path)
}

// record builds and scores the record for one artifact directory.
func (p *Plugin) record(ctx context.Context, dir, projectRoot string) (core.FileRecord, error) {
	info, err := os.Lstat(core.LongPath(dir))
	if err != nil {
		return core.FileRecord{}, err
	}
	c, err := p.measure(dir)
	if err != nil {
		return core.FileRecord{}, err
	}

	mod := p.projectModTime(projectRoot, info.ModTime())
	rec := core.FileRecord{
		Path:       dir,
		Size:       c.size,
		ModTime:    mod,
		AccessTime: mod,
		IsDir:      true,
		Type:       core.TypeArtifact,
	}

	entry := p.opts.Index.Lookup(ctx, dir, true)
	rec.Tracked, rec.Git = entry.Tracked, entry.Status

	v := p.verdict(rec, c)
	rec.Risk, rec.Reason = v.Level, v.Reason
	return rec, nil
}

// verdict scores an artifact directory. Protected or unreadable contents
// make the whole directory protected.
func (p *Plugin) verdict(rec core.FileRecord, c contents) risk.Verdict {
	f := p.opts.Engine.Facts(rec)
	if c.protected || c.unreadable {
		f.Protected = true
	}
	v := risk.Evaluate(f, p.opts.Engine.Policy())
	switch {
	case c.protected:
		v.Reason = reasonContainsProtected
	case c.unreadable:
		v.Reason = reasonContainsUnreadable
	}
	return v
}

// projectModTime is the newest of the artifact's own mtime and the
// project's marker files.
func (p *Plugin) projectModTime(projectRoot string, mod time.Time) time.Time {
	for _, m := range p.markers(projectRoot) {
		if info, err := os.Stat(core.LongPath(m)); err == nil && info.ModTime().After(mod) {
			mod = info.ModTime()
		}
	}
	return mod
}

// Revalidate re-measures an artifact directory and re-scores it against
// fresh git state.
func (p *Plugin) Revalidate(ctx context.Context, rec core.FileRecord) (core.RiskLevel, error) {
	info, err := os.Lstat(core.LongPath(rec.Path))
	if err != nil {
		return rec.Risk, err
	}
	if !info.IsDir() {
		return core.RiskCritical, nil
	}
	c, err := p.measure(rec.Path)
	if err != nil {
		return core.RiskCritical, nil
	}

	entry, err := p.opts.Index.Recheck(ctx, rec.Path, true)
	if err != nil && ctx.Err() != nil {
		return rec.Risk, ctx.Err()
	}

	cur := rec
	cur.Size = c.size
	cur.ModTime = info.ModTime()
	if projectRoot, ok := p.projectRootOf(rec.Path); ok {
		cur.ModTime = p.projectModTime(projectRoot, cur.ModTime)
	}
	cur.Tracked, cur.Git = entry.Tracked, entry.Status
	return p.verdict(cur, c).Level, nil
}

// Clean deletes the selected artifact directories.
func (p *Plugin) Clean(ctx context.Context, sel []core.FileRecord, dryRun bool) (clean.Report, error) {
	ex := clean.NewExecutor(p, clean.Options{
		AllowCritical: p.opts.AllowCritical,
		Metrics:       p.opts.Metrics,
	}, p.logger)
	rep := ex.Clean(ctx, sel, dryRun)
	return rep, rep.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func matchName(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}

func hasSuffix(suffixes []string, name string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) && name != s {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
