// Package browse is the interactive selection screen. It translates key
// presses into selection events and draws the controller's frames; it
// never deletes anything itself.
package browse

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/selection"
)

// Options configures the view.
type Options struct {
	Roots  []string
	DryRun bool
	Logger *zap.Logger
}

// ─── Model ───────────────────────────────────────────────────────────────────

// Model is the bubbletea Model wrapping a selection.Controller.
type Model struct {
	ctrl   selection.Controller
	keys   KeyMap
	opts   Options
	events []selection.Event

	width      int
	height     int
	offset     int  // viewport scroll offset
	confirming bool // two-key delete: Enter then Enter
}

// New creates the view over ctrl.
func New(ctrl selection.Controller, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return Model{
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		opts:   opts,
		width:  80,
		height: 24,
	}
}

// Controller returns the controller in its current state. After the
// program exits it is either Confirmed or Cancelled.
func (m Model) Controller() selection.Controller { return m.ctrl }

// Events returns every event applied so far, in order.
func (m Model) Events() []selection.Event { return m.events }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		if m.ctrl.State() == selection.FilterEditing {
			return m.updateFilter(msg)
		}

		// If awaiting delete confirmation, only Enter confirms.
		if m.confirming {
			m.confirming = false
			if key.Matches(msg, m.keys.Confirm) {
				m = m.apply(selection.Event{Kind: selection.Confirm})
			}
			return m.quitIfDone()
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m = m.apply(selection.Event{Kind: selection.Cancel})
		case key.Matches(msg, m.keys.Up):
			m = m.apply(selection.Event{Kind: selection.Up})
		case key.Matches(msg, m.keys.Down):
			m = m.apply(selection.Event{Kind: selection.Down})
		case key.Matches(msg, m.keys.PageUp):
			m = m.apply(selection.Event{Kind: selection.PageUp})
		case key.Matches(msg, m.keys.PageDown):
			m = m.apply(selection.Event{Kind: selection.PageDown})
		case key.Matches(msg, m.keys.Home):
			m = m.apply(selection.Event{Kind: selection.Home})
		case key.Matches(msg, m.keys.End):
			m = m.apply(selection.Event{Kind: selection.End})
		case key.Matches(msg, m.keys.Toggle):
			m = m.apply(selection.Event{Kind: selection.Toggle})
		case key.Matches(msg, m.keys.ToggleAll):
			m = m.apply(selection.Event{Kind: selection.ToggleAll})
		case key.Matches(msg, m.keys.Sort):
			m = m.apply(selection.Event{Kind: selection.CycleSort})
		case key.Matches(msg, m.keys.Filter):
			m = m.apply(selection.Event{Kind: selection.BeginFilter})
		case key.Matches(msg, m.keys.Help):
			m = m.apply(selection.Event{Kind: selection.ToggleHelp})
		case key.Matches(msg, m.keys.Confirm):
			// First key of two-key confirmation. An empty selection goes
			// straight to the controller, which refuses it with a notice.
			if len(m.ctrl.Selected()) == 0 {
				m = m.apply(selection.Event{Kind: selection.Confirm})
			} else {
				m.confirming = true
			}
		}
		return m.quitIfDone()
	}

	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m = m.apply(selection.Event{Kind: selection.Cancel})
	case tea.KeyEscape:
		m = m.apply(selection.Event{Kind: selection.FilterAbort})
	case tea.KeyEnter:
		m = m.apply(selection.Event{Kind: selection.FilterCommit})
	case tea.KeyBackspace:
		m = m.apply(selection.Event{Kind: selection.FilterBackspace})
	case tea.KeyUp:
		m = m.apply(selection.Event{Kind: selection.Up})
	case tea.KeyDown:
		m = m.apply(selection.Event{Kind: selection.Down})
	case tea.KeySpace:
		m = m.apply(selection.Event{Kind: selection.FilterInput, Text: " "})
	case tea.KeyRunes:
		m = m.apply(selection.Event{Kind: selection.FilterInput, Text: string(msg.Runes)})
	}
	return m.quitIfDone()
}

// apply feeds ev to the controller and records it.
func (m Model) apply(ev selection.Event) Model {
	next, t := m.ctrl.Next(ev)
	m.ctrl = next
	m.events = append(m.events, ev)
	if t.From != t.To || t.Has(selection.EffectRejected) {
		m.opts.Logger.Debug("selection transition",
			zap.Stringer("from", t.From),
			zap.Stringer("to", t.To),
			zap.String("notice", t.Notice),
		)
	}
	m.ensureVisible()
	return m
}

func (m Model) quitIfDone() (tea.Model, tea.Cmd) {
	if m.ctrl.State().Terminal() {
		return m, tea.Quit
	}
	return m, nil
}

// View delegates to view.go renderView.
func (m Model) View() string {
	return m.renderView()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (m *Model) ensureVisible() {
	vh := m.viewportHeight()
	cursor := m.ctrl.Cursor()
	if cursor < m.offset {
		m.offset = cursor
	}
	if cursor >= m.offset+vh {
		m.offset = cursor - vh + 1
	}
}

func (m Model) viewportHeight() int {
	h := m.height - 9 // header (5) + footer (3) + padding
	if h < 1 {
		h = 1
	}
	return h
}
