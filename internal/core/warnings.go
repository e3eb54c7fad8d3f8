package core

import (
	"sync"
)

// maxWarnings caps how many warnings are retained per collector.
const maxWarnings = 500

// Warnings is a concurrency-safe, capped collector of recovered errors.
type Warnings struct {
	mu      sync.Mutex
	items   []error
	dropped int
}

// Add records err. Nil errors are ignored.
func (w *Warnings) Add(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) < maxWarnings {
		w.items = append(w.items, err)
		return
	}
	w.dropped++
}

// List returns a copy of the retained warnings.
func (w *Warnings) List() []error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]error(nil), w.items...)
}

// Len returns the total number of warnings seen, including dropped ones.
func (w *Warnings) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items) + w.dropped
}

// Dropped returns how many warnings exceeded the cap.
func (w *Warnings) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}
