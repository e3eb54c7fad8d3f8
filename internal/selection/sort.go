package selection

import (
	"sort"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// SortKey orders the view.
type SortKey int

const (
	SortSize SortKey = iota // largest first
	SortAge                 // oldest first
	SortRisk                // most dangerous first
	SortPath                // alphabetical
)

func (k SortKey) String() string {
	switch k {
	case SortSize:
		return "size"
	case SortAge:
		return "age"
	case SortRisk:
		return "risk"
	case SortPath:
		return "path"
	}
	return "unknown"
}

// next rotates size → age → risk → path → size.
func (k SortKey) next() SortKey {
	return (k + 1) % 4
}

// sortView orders view in place. Ties always fall back to path so the
// order is total and repeatable.
func sortView(view []int, items []core.FileRecord, key SortKey) {
	sort.SliceStable(view, func(i, j int) bool {
		a, b := items[view[i]], items[view[j]]
		switch key {
		case SortSize:
			if a.Size != b.Size {
				return a.Size > b.Size
			}
		case SortAge:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
		case SortRisk:
			if a.Risk != b.Risk {
				return a.Risk > b.Risk
			}
		}
		return a.Path < b.Path
	})
}
