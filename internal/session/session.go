// Package session ties the scan, scoring, selection and cleanup components
// together for one invocation over a set of roots.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/classify"
	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/gitindex"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/plugin"
	"github.com/lakshaymaurya-felt/sweep/internal/plugin/largefile"
	"github.com/lakshaymaurya-felt/sweep/internal/plugin/project"
	"github.com/lakshaymaurya-felt/sweep/internal/risk"
	"github.com/lakshaymaurya-felt/sweep/internal/scan"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
)

// ErrNotConfirmed is returned by Execute for a selection that was not
// confirmed.
var ErrNotConfirmed = errors.New("selection was not confirmed")

// Session owns every session-scoped cache. Nothing in it is global, so
// tests can run sessions side by side.
type Session struct {
	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	warnings *core.Warnings
	progress *core.Progress

	classifier *classify.Classifier
	engine     *risk.Engine
	index      *gitindex.Index
	registry   *plugin.Registry

	results []core.FileRecord
}

// New validates cfg and assembles the components. Any configuration
// problem is returned here, before anything touches the filesystem.
func New(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	protected := append([]string(nil), cfg.ProtectedPatterns...)
	for _, k := range config.GetProjectKinds() {
		protected = append(protected, k.Protected...)
	}
	classifier, err := classify.New(classify.Options{
		ProtectedExtensions: cfg.ProtectedExtensions,
		ProtectedPatterns:   protected,
		TestDataPatterns:    cfg.TestDataPatterns,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:        *cfg,
		logger:     logger,
		metrics:    m,
		warnings:   &core.Warnings{},
		progress:   &core.Progress{},
		classifier: classifier,
		engine: risk.NewEngine(classifier, risk.Options{
			RecencyWindow: time.Duration(cfg.RecentDays) * 24 * time.Hour,
			Policy:        risk.Policy{IncludeTracked: cfg.IncludeTracked},
		}),
		registry: plugin.NewRegistry(logger),
	}
	s.index = gitindex.NewIndex(logger, s.warnings)

	if err := s.registerPlugins(); err != nil {
		return nil, err
	}
	if err := s.registry.Activate(cfg.Plugins); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) registerPlugins() error {
	lf := largefile.New(largefile.Options{
		Threshold:     s.cfg.Threshold,
		Workers:       s.cfg.Workers,
		Exclude:       s.cfg.Exclude,
		Classifier:    s.classifier,
		Engine:        s.engine,
		Index:         s.index,
		AllowCritical: s.cfg.IncludeProtected,
		Progress:      s.progress,
		Warnings:      s.warnings,
		Metrics:       s.metrics,
	}, s.logger)
	if err := s.registry.Register(lf); err != nil {
		return err
	}

	for _, p := range project.NewAll(project.Options{
		Threshold:     s.cfg.Threshold,
		Exclude:       s.cfg.Exclude,
		Classifier:    s.classifier,
		Engine:        s.engine,
		Index:         s.index,
		AllowCritical: s.cfg.IncludeProtected,
		Progress:      s.progress,
		Warnings:      s.warnings,
		Metrics:       s.metrics,
	}, s.logger) {
		if err := s.registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Config returns the resolved configuration.
func (s *Session) Config() config.Config { return s.cfg }

// Registry exposes the plugin registry.
func (s *Session) Registry() *plugin.Registry { return s.registry }

// Progress returns the live scan counters.
func (s *Session) Progress() *core.Progress { return s.progress }

// Warnings returns every recovered error recorded so far.
func (s *Session) Warnings() []error { return s.warnings.List() }

// WarningCount returns how many warnings were recorded, including any
// beyond the retention cap.
func (s *Session) WarningCount() int { return s.warnings.Len() }

// Results returns the records of the last scan.
func (s *Session) Results() []core.FileRecord { return s.results }

// ─── Scan ────────────────────────────────────────────────────────────────────

// Scan runs every active plugin over the configured roots. Only records at
// or above the size threshold are kept, and when an age threshold is set
// only those not accessed within it. Plugin failures are returned together
// with whatever the other plugins found.
func (s *Session) Scan(ctx context.Context) ([]core.FileRecord, error) {
	start := time.Now()
	roots := scan.DedupRoots(s.cfg.Roots)

	s.logger.Info("scan started",
		zap.Strings("roots", roots),
		zap.Int64("threshold", s.cfg.Threshold),
		zap.Int("older_than_days", s.cfg.OlderThanDays),
	)

	recs, err := s.registry.Scan(ctx, roots)

	now := time.Now()
	kept := recs[:0:0]
	for _, rec := range recs {
		if rec.Size < s.cfg.Threshold {
			continue
		}
		if s.cfg.OlderThanDays > 0 && !risk.ShouldInclude(rec, s.cfg.OlderThanDays, now) {
			continue
		}
		kept = append(kept, rec)
		s.metrics.RecordCandidate(rec.Plugin, rec.Risk.String())
	}
	s.results = kept

	for _, w := range s.warnings.List() {
		s.metrics.RecordWarning(warningKind(w))
	}
	snap := s.progress.Snapshot()
	s.metrics.RecordScan(snap.Scanned, time.Since(start))

	s.logger.Info("scan finished",
		zap.Int("candidates", len(kept)),
		zap.Int64("entries", snap.Scanned),
		zap.Int("warnings", s.warnings.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return kept, ctxErr
	}
	return kept, err
}

func warningKind(err error) string {
	var (
		ioErr   *scan.IOError
		repoErr *gitindex.RepositoryError
		clsErr  *classify.Error
	)
	switch {
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &repoErr):
		return "repository"
	case errors.As(err, &clsErr):
		return "classify"
	}
	return "other"
}

// Controller starts a selection over the last scan's results.
func (s *Session) Controller(now time.Time) selection.Controller {
	return selection.New(s.results, selection.Options{
		AllowCritical: s.cfg.IncludeProtected,
		Now:           now,
	})
}

// ─── Execute ─────────────────────────────────────────────────────────────────

// Execute deletes the confirmed selection, or reports what would be deleted
// when the session is a dry run. Anything short of a confirmed controller
// is refused without touching the filesystem.
func (s *Session) Execute(ctx context.Context, c selection.Controller) (clean.Report, error) {
	if c.State() != selection.Confirmed {
		return clean.Report{}, fmt.Errorf("execute in state %s: %w", c.State(), ErrNotConfirmed)
	}
	sel := c.Selected()

	s.logger.Info("cleanup started", zap.Int("items", len(sel)), zap.Bool("dry_run", s.cfg.DryRun))
	rep, err := s.registry.Clean(ctx, sel, s.cfg.DryRun)
	s.logger.Info("cleanup finished",
		zap.Int("deleted", rep.Count(clean.Deleted)),
		zap.Int("would_delete", rep.Count(clean.WouldDelete)),
		zap.Int("skipped", rep.Count(clean.Skipped)),
		zap.Int("failed", rep.Count(clean.Failed)),
		zap.Int64("bytes_freed", rep.BytesFreed),
	)
	return rep, err
}

// WriteMetrics writes the session metrics to the configured textfile.
func (s *Session) WriteMetrics() error {
	if s.cfg.MetricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
