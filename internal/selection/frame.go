package selection

import (
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// Row is one rendered line of the view.
type Row struct {
	Path     string
	Plugin   string
	Size     string
	Age      string
	Risk     core.RiskLevel
	Reason   string
	Selected bool
	Cursor   bool
	Locked   bool // cannot be selected in this session
}

// Frame is everything a renderer needs to draw one screen.
type Frame struct {
	State         State
	Sort          SortKey
	Filter        string
	Editing       bool
	Help          bool
	Notice        string
	Rows          []Row
	Cursor        int
	Total         int
	SelectedCount int
	SelectedBytes int64
	AllowCritical bool
}

// Frame renders the controller. It is a pure function of the controller's
// state.
func (c Controller) Frame() Frame {
	f := Frame{
		State:         c.state,
		Sort:          c.sortKey,
		Filter:        c.Filter(),
		Editing:       c.state == FilterEditing,
		Help:          c.help,
		Notice:        c.notice,
		Cursor:        c.cursor,
		Total:         len(c.items),
		SelectedCount: len(c.selected),
		SelectedBytes: c.SelectedBytes(),
		AllowCritical: c.opts.AllowCritical,
		Rows:          make([]Row, 0, len(c.view)),
	}
	for i, idx := range c.view {
		rec := c.items[idx]
		f.Rows = append(f.Rows, Row{
			Path:     rec.Path,
			Plugin:   rec.Plugin,
			Size:     core.FormatSize(rec.Size),
			Age:      core.FormatAge(rec.Age(c.opts.Now)),
			Risk:     rec.Risk,
			Reason:   rec.Reason,
			Selected: c.selected[rec.Path],
			Cursor:   i == c.cursor,
			Locked:   !c.selectable(rec),
		})
	}
	return f
}
