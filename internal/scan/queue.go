package scan

import (
	"sync"
)

// dirQueue is an unbounded work queue of directories. pending counts dirs
// that are queued or being read; workers exit once it drops to zero.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	dirs    []string
	pending int
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dirQueue) push(dir string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending++
	q.dirs = append(q.dirs, dir)
	q.cond.Signal()
}

// pop blocks until a directory is available. It returns false when the
// walk is complete or the queue was closed.
func (q *dirQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.dirs) == 0 && q.pending > 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed || len(q.dirs) == 0 {
		return "", false
	}
	last := len(q.dirs) - 1
	dir := q.dirs[last]
	q.dirs = q.dirs[:last]
	return dir, true
}

// done marks one popped directory as fully read.
func (q *dirQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	if q.pending <= 0 {
		q.cond.Broadcast()
	}
}

// close wakes every waiter and drops queued work.
func (q *dirQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.dirs = nil
	q.cond.Broadcast()
}
