package plugin

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPathLocks_DisjointTreesDoNotBlock(t *testing.T) {
	l := NewPathLocks()
	ctx := context.Background()

	r1, err := l.Acquire(ctx, []string{"/a/b"})
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	done := make(chan struct{})
	go func() {
		r2, err := l.Acquire(ctx, []string{"/a/bc", "/c"})
		if err == nil {
			r2()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disjoint claim blocked")
	}
}

func TestPathLocks_OverlapWaitsForRelease(t *testing.T) {
	l := NewPathLocks()
	ctx := context.Background()

	release, err := l.Acquire(ctx, []string{"/a"})
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := l.Acquire(ctx, []string{"/a/b/c"})
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("descendant claim granted while ancestor held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release() // second call is a no-op

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("claim not granted after release")
	}
}

func TestPathLocks_CancelWhileWaiting(t *testing.T) {
	l := NewPathLocks()
	release, err := l.Acquire(context.Background(), []string{"/a/b"})
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, []string{"/a"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() = %v, want deadline exceeded", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a/b", "/a", true},
		{"/a", "/ab", false},
		{"/", "/x", true},
		{"/x/y", "/z", false},
	}
	for _, tt := range tests {
		if got := overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
