package core

import (
	"sync/atomic"
)

// Progress holds live scan counters shared between scanners and the UI.
type Progress struct {
	scanned atomic.Int64
	matched atomic.Int64
	bytes   atomic.Int64
	skipped atomic.Int64
}

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	Scanned int64
	Matched int64
	Bytes   int64
	Skipped int64
}

func (p *Progress) AddScanned(n int64) { p.scanned.Add(n) }
func (p *Progress) AddSkipped(n int64) { p.skipped.Add(n) }

// AddMatched counts one candidate of the given size.
func (p *Progress) AddMatched(size int64) {
	p.matched.Add(1)
	p.bytes.Add(size)
}

// Snapshot returns the current counter values.
func (p *Progress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		Scanned: p.scanned.Load(),
		Matched: p.matched.Load(),
		Bytes:   p.bytes.Load(),
		Skipped: p.skipped.Load(),
	}
}
