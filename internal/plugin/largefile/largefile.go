// Package largefile is the plugin that reports individual files above a
// size threshold, scored by the risk engine.
package largefile

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/classify"
	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/gitindex"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/plugin"
	"github.com/lakshaymaurya-felt/sweep/internal/risk"
	"github.com/lakshaymaurya-felt/sweep/internal/scan"
)

// Name is the registry name of this plugin.
const Name = "large-files"

const version = "1.0.0"

// Options wires the plugin to the session's shared components.
type Options struct {
	Threshold int64
	Workers   int
	Exclude   []string

	Classifier *classify.Classifier
	Engine     *risk.Engine
	Index      *gitindex.Index

	// AllowCritical is passed on to the cleanup executor.
	AllowCritical bool

	Progress *core.Progress
	Warnings *core.Warnings
	Metrics  *metrics.Metrics
}

// Plugin finds large files. It is stateless between scans apart from the
// shared git index.
type Plugin struct {
	opts   Options
	logger *zap.Logger
}

// New creates the large-file plugin.
func New(opts Options, logger *zap.Logger) *Plugin {
	if opts.Workers <= 0 {
		opts.Workers = scan.DefaultWorkers()
	}
	if opts.Warnings == nil {
		opts.Warnings = &core.Warnings{}
	}
	if opts.Progress == nil {
		opts.Progress = &core.Progress{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{opts: opts, logger: logger.With(zap.String("plugin", Name))}
}

func (p *Plugin) Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    Name,
		Version: version,
		Config: map[string]string{
			"min-size": core.FormatSize(p.opts.Threshold),
		},
	}
}

// DetectProject is always false: this plugin is not tied to a project type.
func (p *Plugin) DetectProject(string) bool { return false }

func (p *Plugin) CleanablePatterns() []plugin.Pattern {
	return []plugin.Pattern{{
		Glob:        "*",
		Description: fmt.Sprintf("any file of %s or more", core.FormatSize(p.opts.Threshold)),
	}}
}

func (p *Plugin) ProtectedPatterns() []plugin.Pattern { return nil }

// Scan walks root and scores every file at or above the threshold. The git
// index for root is built concurrently with the walk.
func (p *Plugin) Scan(ctx context.Context, root string) ([]core.FileRecord, error) {
	p.opts.Index.Start(ctx, root)

	scanner := scan.NewScanner(scan.Options{
		Threshold: p.opts.Threshold,
		Workers:   p.opts.Workers,
		Exclude:   p.opts.Exclude,
		Progress:  p.opts.Progress,
		Warnings:  p.opts.Warnings,
	}, p.logger)

	found := scanner.Scan(ctx, []string{root})

	var (
		mu      sync.Mutex
		records []core.FileRecord
		wg      sync.WaitGroup
	)
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range found {
				rec = p.score(ctx, rec)
				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	p.logger.Debug("scan finished",
		zap.String("root", root),
		zap.Int("candidates", len(records)),
		zap.Int64("entries", scanner.ScannedCount()),
	)
	return records, ctx.Err()
}

// score fills in type, git state and risk for a freshly scanned record.
func (p *Plugin) score(ctx context.Context, rec core.FileRecord) core.FileRecord {
	t, err := p.opts.Classifier.ClassifyDetail(rec.Path)
	if err != nil {
		p.opts.Warnings.Add(err)
	}
	rec.Type = t

	entry := p.opts.Index.Lookup(ctx, rec.Path, false)
	rec.Tracked, rec.Git = entry.Tracked, entry.Status

	v := p.opts.Engine.Score(rec)
	rec.Risk, rec.Reason = v.Level, v.Reason
	return rec
}

// Revalidate re-reads rec from disk and git and returns its current level.
// A repository that cannot be re-read yields Critical.
func (p *Plugin) Revalidate(ctx context.Context, rec core.FileRecord) (core.RiskLevel, error) {
	info, err := os.Lstat(core.LongPath(rec.Path))
	if err != nil {
		return rec.Risk, err
	}
	if !info.Mode().IsRegular() {
		return core.RiskCritical, nil
	}

	entry, err := p.opts.Index.Recheck(ctx, rec.Path, false)
	if err != nil {
		if ctx.Err() != nil {
			return rec.Risk, ctx.Err()
		}
		p.logger.Warn("recheck failed", zap.String("path", rec.Path), zap.Error(err))
	}

	cur := rec
	cur.Size = info.Size()
	cur.ModTime = info.ModTime()
	cur.Tracked, cur.Git = entry.Tracked, entry.Status
	cur.Type = p.opts.Classifier.Classify(rec.Path)
	return p.opts.Engine.Score(cur).Level, nil
}

// Clean deletes sel through a revalidating executor.
func (p *Plugin) Clean(ctx context.Context, sel []core.FileRecord, dryRun bool) (clean.Report, error) {
	ex := clean.NewExecutor(p, clean.Options{
		AllowCritical: p.opts.AllowCritical,
		Metrics:       p.opts.Metrics,
	}, p.logger)
	rep := ex.Clean(ctx, sel, dryRun)
	return rep, rep.Err()
}
