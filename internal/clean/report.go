// Package clean deletes confirmed selections, re-checking each path's risk
// immediately before it is removed.
package clean

import (
	"errors"
	"fmt"
)

// Outcome is what happened to one path.
type Outcome int

const (
	Deleted Outcome = iota
	WouldDelete
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case WouldDelete:
		return "would-delete"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Skip reasons.
const (
	ReasonEscalated = "risk escalated"
	ReasonProtected = "protected"
	ReasonCancelled = "cancelled"
	ReasonVanished  = "no longer exists"
)

// Result is the outcome for a single path.
type Result struct {
	Path    string
	Plugin  string
	Size    int64
	Outcome Outcome
	Reason  string
	Err     error
}

// Report summarizes one cleanup run.
type Report struct {
	Results    []Result
	BytesFreed int64
}

// DeletionError is a filesystem failure while removing one path.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string { return fmt.Sprintf("delete %s: %v", e.Path, e.Err) }
func (e *DeletionError) Unwrap() error { return e.Err }

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.Outcome == Deleted || res.Outcome == WouldDelete {
		r.BytesFreed += res.Size
	}
}

// Merge appends other's results to r.
func (r *Report) Merge(other Report) {
	r.Results = append(r.Results, other.Results...)
	r.BytesFreed += other.BytesFreed
}

// Count returns how many results have outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns the results that could not be deleted.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == Failed {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-path failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Outcome == Failed && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}
