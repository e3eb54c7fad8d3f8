// Package selection is the interactive state machine that decides which
// scanned records are deleted. It is single-threaded and value-typed: every
// event produces a new Controller and leaves the old one untouched, so a
// session can be replayed from its event log.
package selection

import (
	"strings"
	"time"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// State of the controller.
type State int

const (
	Browsing State = iota
	SortCycling
	FilterEditing
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Browsing:
		return "browsing"
	case SortCycling:
		return "sort-cycling"
	case FilterEditing:
		return "filter-editing"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further event can change the state.
func (s State) Terminal() bool { return s == Confirmed || s == Cancelled }

// EventKind enumerates the inputs the controller understands.
type EventKind int

const (
	Up EventKind = iota
	Down
	PageUp
	PageDown
	Home
	End
	Toggle
	ToggleAll
	CycleSort
	Confirm
	Cancel
	BeginFilter
	FilterInput
	FilterBackspace
	FilterCommit
	FilterAbort
	ToggleHelp
)

// Event is one discrete input. Text is only used by FilterInput.
type Event struct {
	Kind EventKind
	Text string
}

// Effect describes an observable consequence of a transition.
type Effect int

const (
	EffectCursorMoved Effect = iota
	EffectSelectionChanged
	EffectRejected
	EffectResorted
	EffectFilterChanged
	EffectHelpToggled
	EffectConfirmed
	EffectCancelled
)

// Transition is the result of applying one event.
type Transition struct {
	From    State
	To      State
	Effects []Effect
	Notice  string
}

// Has reports whether t includes effect e.
func (t Transition) Has(e Effect) bool {
	for _, x := range t.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// Options are fixed for the lifetime of a session.
type Options struct {
	// AllowCritical permits selecting Critical records.
	AllowCritical bool

	// PageSize is the PageUp/PageDown step. Zero means 10.
	PageSize int

	// Now is the reference time for rendered ages.
	Now time.Time
}

// Controller holds the full selection state. The zero value is not usable;
// create one with New.
type Controller struct {
	items    []core.FileRecord
	opts     Options
	state    State
	view     []int
	cursor   int
	selected map[string]bool
	sortKey  SortKey
	filter   string
	draft    string
	help     bool
	notice   string
}

// New creates a controller over items, sorted by size, nothing selected.
func New(items []core.FileRecord, opts Options) Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	c := Controller{
		items:    append([]core.FileRecord(nil), items...),
		opts:     opts,
		state:    Browsing,
		selected: map[string]bool{},
		sortKey:  SortSize,
	}
	c.view = c.buildView(c.filter)
	return c
}

// Replay applies events in order to a fresh controller.
func Replay(items []core.FileRecord, opts Options, events []Event) (Controller, []Transition) {
	c := New(items, opts)
	ts := make([]Transition, 0, len(events))
	for _, ev := range events {
		var t Transition
		c, t = c.Next(ev)
		ts = append(ts, t)
	}
	return c, ts
}

// State returns the current state.
func (c Controller) State() State { return c.state }

// SortKey returns the active sort key.
func (c Controller) SortKey() SortKey { return c.sortKey }

// Cursor returns the cursor position within the current view.
func (c Controller) Cursor() int { return c.cursor }

// Filter returns the active filter, or the draft while editing.
func (c Controller) Filter() string {
	if c.state == FilterEditing {
		return c.draft
	}
	return c.filter
}

// View returns the records in display order.
func (c Controller) View() []core.FileRecord {
	out := make([]core.FileRecord, len(c.view))
	for i, idx := range c.view {
		out[i] = c.items[idx]
	}
	return out
}

// Current returns the record under the cursor.
func (c Controller) Current() (core.FileRecord, bool) {
	if len(c.view) == 0 {
		return core.FileRecord{}, false
	}
	return c.items[c.view[c.cursor]], true
}

// IsSelected reports whether the record at path is selected.
func (c Controller) IsSelected(path string) bool { return c.selected[path] }

// Selected returns every selected record in scan order, including ones the
// current filter hides.
func (c Controller) Selected() []core.FileRecord {
	var out []core.FileRecord
	for _, rec := range c.items {
		if c.selected[rec.Path] {
			out = append(out, rec)
		}
	}
	return out
}

// SelectedBytes sums the sizes of the selection.
func (c Controller) SelectedBytes() int64 {
	var n int64
	for _, rec := range c.Selected() {
		n += rec.Size
	}
	return n
}

// selectable reports whether rec may enter the selection.
func (c Controller) selectable(rec core.FileRecord) bool {
	return rec.Risk != core.RiskCritical || c.opts.AllowCritical
}

// ─── Transitions ─────────────────────────────────────────────────────────────

// Next applies ev and returns the resulting controller. Terminal states
// ignore every event.
func (c Controller) Next(ev Event) (Controller, Transition) {
	t := Transition{From: c.state, To: c.state}
	if c.state.Terminal() {
		return c, t
	}
	c.notice = ""

	switch c.state {
	case FilterEditing:
		c = c.nextFilter(ev, &t)
	default:
		c = c.nextBrowsing(ev, &t)
	}

	t.To = c.state
	t.Notice = c.notice
	return c, t
}

func (c Controller) nextBrowsing(ev Event, t *Transition) Controller {
	switch ev.Kind {
	case Up, Down, PageUp, PageDown, Home, End:
		c = c.move(ev.Kind, t)
	case Toggle:
		c = c.toggle(t)
	case ToggleAll:
		c = c.toggleAll(t)
	case CycleSort:
		c.state = SortCycling
		c = c.resort(c.sortKey.next())
		c.state = Browsing
		t.Effects = append(t.Effects, EffectResorted)
	case Confirm:
		if len(c.selected) == 0 {
			c.notice = "nothing selected"
			return c
		}
		c.state = Confirmed
		t.Effects = append(t.Effects, EffectConfirmed)
	case Cancel:
		c = c.cancel(t)
	case BeginFilter:
		c.state = FilterEditing
		c.draft = c.filter
	case ToggleHelp:
		c.help = !c.help
		t.Effects = append(t.Effects, EffectHelpToggled)
	}
	return c
}

func (c Controller) nextFilter(ev Event, t *Transition) Controller {
	switch ev.Kind {
	case FilterInput:
		c = c.refilter(c.draft+ev.Text, t)
	case FilterBackspace:
		if r := []rune(c.draft); len(r) > 0 {
			c = c.refilter(string(r[:len(r)-1]), t)
		}
	case FilterCommit:
		c.filter = c.draft
		c.state = Browsing
	case FilterAbort:
		c = c.refilter(c.filter, t)
		c.state = Browsing
	case Up, Down, PageUp, PageDown, Home, End:
		c = c.move(ev.Kind, t)
	case Cancel:
		c = c.cancel(t)
	}
	return c
}

func (c Controller) cancel(t *Transition) Controller {
	c.selected = map[string]bool{}
	c.state = Cancelled
	t.Effects = append(t.Effects, EffectCancelled)
	return c
}

func (c Controller) move(k EventKind, t *Transition) Controller {
	if len(c.view) == 0 {
		return c
	}
	prev := c.cursor
	switch k {
	case Up:
		c.cursor--
	case Down:
		c.cursor++
	case PageUp:
		c.cursor -= c.opts.PageSize
	case PageDown:
		c.cursor += c.opts.PageSize
	case Home:
		c.cursor = 0
	case End:
		c.cursor = len(c.view) - 1
	}
	c.cursor = clamp(c.cursor, 0, len(c.view)-1)
	if c.cursor != prev {
		t.Effects = append(t.Effects, EffectCursorMoved)
	}
	return c
}

// toggle flips the cursor item. Critical items are rejected here, at the
// only place the selection is mutated one item at a time.
func (c Controller) toggle(t *Transition) Controller {
	rec, ok := c.Current()
	if !ok {
		return c
	}
	if !c.selectable(rec) {
		c.notice = "critical items cannot be selected"
		t.Effects = append(t.Effects, EffectRejected)
		return c
	}
	c.selected = cloneSet(c.selected)
	if c.selected[rec.Path] {
		delete(c.selected, rec.Path)
	} else {
		c.selected[rec.Path] = true
	}
	t.Effects = append(t.Effects, EffectSelectionChanged)
	return c
}

// toggleAll selects every eligible item in the view, or clears them all if
// they are already selected. Critical items never take part unless the
// session override is set.
func (c Controller) toggleAll(t *Transition) Controller {
	var eligible []string
	all := true
	for _, idx := range c.view {
		rec := c.items[idx]
		if !c.selectable(rec) {
			continue
		}
		eligible = append(eligible, rec.Path)
		if !c.selected[rec.Path] {
			all = false
		}
	}
	if len(eligible) == 0 {
		c.notice = "no selectable items"
		t.Effects = append(t.Effects, EffectRejected)
		return c
	}

	c.selected = cloneSet(c.selected)
	for _, p := range eligible {
		if all {
			delete(c.selected, p)
		} else {
			c.selected[p] = true
		}
	}
	t.Effects = append(t.Effects, EffectSelectionChanged)
	return c
}

func (c Controller) refilter(filter string, t *Transition) Controller {
	c.draft = filter
	anchor, hadAnchor := c.Current()
	c.view = c.buildView(filter)
	c = c.restoreCursor(anchor, hadAnchor)
	t.Effects = append(t.Effects, EffectFilterChanged)
	return c
}

func (c Controller) resort(key SortKey) Controller {
	anchor, hadAnchor := c.Current()
	c.sortKey = key
	c.view = c.buildView(c.Filter())
	return c.restoreCursor(anchor, hadAnchor)
}

// restoreCursor puts the cursor back on anchor if it is still visible.
func (c Controller) restoreCursor(anchor core.FileRecord, ok bool) Controller {
	if ok {
		for i, idx := range c.view {
			if c.items[idx].Path == anchor.Path {
				c.cursor = i
				return c
			}
		}
	}
	c.cursor = clamp(c.cursor, 0, max(len(c.view)-1, 0))
	return c
}

// buildView returns a new index slice of the items matching filter, in
// sort order.
func (c Controller) buildView(filter string) []int {
	needle := strings.ToLower(filter)
	view := make([]int, 0, len(c.items))
	for i, rec := range c.items {
		if needle == "" || strings.Contains(strings.ToLower(rec.Path), needle) {
			view = append(view, i)
		}
	}
	sortView(view, c.items, c.sortKey)
	return view
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
