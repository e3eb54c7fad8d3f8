// Package status is the live progress screen shown while a scan runs.
package status

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// Options configures the progress screen.
type Options struct {
	Roots    []string
	Plugins  []string
	Progress *core.Progress

	// WarningCount reports how many warnings the scan has recorded.
	WarningCount func() int

	// Cancel is called when the user quits before the scan finishes.
	Cancel func()

	// RefreshInterval is the counter refresh cadence. Zero means 100ms.
	RefreshInterval time.Duration
}

// ─── Messages ────────────────────────────────────────────────────────────────

type tickMsg time.Time

type volumesMsg struct {
	vols []Volume
	err  error
}

// DoneMsg tells the screen the scan has finished.
type DoneMsg struct {
	Err error
}

// ─── Model ───────────────────────────────────────────────────────────────────

// Model is the bubbletea Model for scan progress.
type Model struct {
	opts     Options
	spinner  spinner.Model
	snap     core.ProgressSnapshot
	warnings int
	volumes  []Volume
	started  time.Time

	// RateHistory holds entries scanned per refresh (last 60 readings).
	RateHistory []float64

	Width     int
	Height    int
	done      bool
	cancelled bool
	Err       error
}

// New creates the progress screen.
func New(opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 100 * time.Millisecond
	}
	if opts.Progress == nil {
		opts.Progress = &core.Progress{}
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return Model{
		opts:    opts,
		spinner: sp,
		started: time.Now(),
		Width:   80,
		Height:  24,
	}
}

// Cancelled reports whether the user quit before the scan finished.
func (m Model) Cancelled() bool { return m.cancelled }

// Snapshot returns the last counters read.
func (m Model) Snapshot() core.ProgressSnapshot { return m.snap }

func (m Model) doTick() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) collectVolumes() tea.Cmd {
	roots := m.opts.Roots
	return func() tea.Msg {
		vols, err := CollectVolumes(roots)
		return volumesMsg{vols: vols, err: err}
	}
}

// ─── tea.Model interface ─────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.collectVolumes(), m.doTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.cancelled = true
			if m.opts.Cancel != nil {
				m.opts.Cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m = m.refresh()
		return m, m.doTick()

	case volumesMsg:
		m.volumes = msg.vols
		if msg.err != nil && len(msg.vols) == 0 {
			m.Err = msg.err
		}
		return m, nil

	case DoneMsg:
		m = m.refresh()
		m.done = true
		if msg.Err != nil {
			m.Err = msg.Err
		}
		return m, tea.Quit
	}

	return m, nil
}

// refresh reads the shared counters.
func (m Model) refresh() Model {
	snap := m.opts.Progress.Snapshot()
	m.RateHistory = appendF64(m.RateHistory, float64(snap.Scanned-m.snap.Scanned), 60)
	m.snap = snap
	if m.opts.WarningCount != nil {
		m.warnings = m.opts.WarningCount()
	}
	return m
}

func (m Model) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return m.renderView()
}

// ─── History helpers ─────────────────────────────────────────────────────────

func appendF64(h []float64, v float64, maxLen int) []float64 {
	h = append(h, v)
	if len(h) > maxLen {
		h = h[1:]
	}
	return h
}
