package clean

import (
	"context"
	"errors"
	"io/fs"

	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
)

// Revalidator recomputes a record's risk from the current state of disk and
// git.
type Revalidator interface {
	Revalidate(ctx context.Context, rec core.FileRecord) (core.RiskLevel, error)
}

// Remover deletes path and returns the bytes freed. With dryRun set it
// removes nothing and returns what deleting path would free now.
type Remover func(path string, dryRun bool) (int64, error)

// Options configures an Executor.
type Options struct {
	// AllowCritical permits deleting paths that still score Critical. It is
	// the session-level protected override.
	AllowCritical bool

	// Remove defaults to core.SafeDelete.
	Remove Remover

	Metrics *metrics.Metrics
}

// Executor runs deletions one path at a time. A failure never stops the
// rest of the batch.
type Executor struct {
	rv     Revalidator
	opts   Options
	logger *zap.Logger
}

// NewExecutor creates an Executor. rv may be nil, in which case scanned
// levels are trusted as-is.
func NewExecutor(rv Revalidator, opts Options, logger *zap.Logger) *Executor {
	if opts.Remove == nil {
		opts.Remove = core.SafeDelete
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{rv: rv, opts: opts, logger: logger}
}

// Clean processes sel in order. With dryRun set nothing is removed and the
// report lists what would have been.
func (e *Executor) Clean(ctx context.Context, sel []core.FileRecord, dryRun bool) Report {
	var report Report
	for _, rec := range sel {
		res := e.cleanOne(ctx, rec, dryRun)
		report.add(res)
		e.opts.Metrics.RecordClean(res.Outcome.String(), freed(res))

		fields := []zap.Field{
			zap.String("path", res.Path),
			zap.String("outcome", res.Outcome.String()),
			zap.Int64("size", res.Size),
		}
		switch res.Outcome {
		case Failed:
			e.logger.Warn("delete failed", append(fields, zap.Error(res.Err))...)
		case Skipped:
			e.logger.Info("delete skipped", append(fields, zap.String("reason", res.Reason))...)
		default:
			e.logger.Debug("delete", fields...)
		}
	}
	return report
}

func freed(res Result) int64 {
	if res.Outcome == Deleted || res.Outcome == WouldDelete {
		return res.Size
	}
	return 0
}

func (e *Executor) cleanOne(ctx context.Context, rec core.FileRecord, dryRun bool) Result {
	res := Result{Path: rec.Path, Plugin: rec.Plugin, Size: rec.Size}

	if ctx.Err() != nil {
		res.Outcome, res.Reason = Skipped, ReasonCancelled
		return res
	}

	level := rec.Risk
	if e.rv != nil {
		current, err := e.rv.Revalidate(ctx, rec)
		if err != nil {
			res.Outcome, res.Err = Skipped, err
			res.Reason = "revalidation failed"
			if errors.Is(err, fs.ErrNotExist) {
				res.Reason = ReasonVanished
			}
			return res
		}
		if current > rec.Risk {
			res.Outcome, res.Reason = Skipped, ReasonEscalated
			return res
		}
		level = current
	}

	if level == core.RiskCritical && !e.opts.AllowCritical {
		res.Outcome, res.Reason = Skipped, ReasonProtected
		return res
	}

	n, err := e.opts.Remove(rec.Path, dryRun)
	if err != nil {
		res.Outcome = Failed
		res.Err = &DeletionError{Path: rec.Path, Err: err}
		return res
	}
	res.Outcome, res.Size = Deleted, n
	if dryRun {
		res.Outcome = WouldDelete
	}
	return res
}
