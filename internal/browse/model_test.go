package browse

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func items() []core.FileRecord {
	return []core.FileRecord{
		{Path: "/data/a.iso", Plugin: "large-files", Size: 300 << 20, Risk: core.RiskLow, ModTime: now.Add(-90 * 24 * time.Hour)},
		{Path: "/data/b.log", Plugin: "large-files", Size: 200 << 20, Risk: core.RiskSafe, ModTime: now.Add(-60 * 24 * time.Hour)},
		{Path: "/repo/demo.mp4", Plugin: "large-files", Size: 100 << 20, Risk: core.RiskCritical, Reason: "tracked by git", ModTime: now},
	}
}

func newModel() Model {
	return New(selection.New(items(), selection.Options{Now: now}), Options{Roots: []string{"/data"}})
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func keyOf(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

// send feeds msgs in order and returns the final model and the last command.
func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_TwoKeyConfirm(t *testing.T) {
	m, cmd := send(newModel(), keyOf(tea.KeySpace), keyOf(tea.KeyEnter))
	if isQuit(cmd) {
		t.Fatal("first enter must not quit")
	}
	if !strings.Contains(m.View(), "Press Enter to delete") {
		t.Error("confirmation prompt not rendered")
	}

	m, cmd = send(m, keyOf(tea.KeyEnter))
	if !isQuit(cmd) {
		t.Fatal("second enter should quit")
	}
	c := m.Controller()
	if c.State() != selection.Confirmed {
		t.Fatalf("state = %v, want confirmed", c.State())
	}
	if sel := c.Selected(); len(sel) != 1 || sel[0].Path != "/data/a.iso" {
		t.Errorf("Selected() = %+v", sel)
	}
}

func TestModel_OtherKeyAbortsConfirm(t *testing.T) {
	m, _ := send(newModel(), keyOf(tea.KeySpace), keyOf(tea.KeyEnter), keyOf(tea.KeyDown))
	if m.Controller().State() != selection.Browsing {
		t.Fatalf("state = %v, want browsing", m.Controller().State())
	}
	if m.Controller().Cursor() != 0 {
		t.Error("the aborting key should be swallowed")
	}
	if strings.Contains(m.View(), "Press Enter to delete") {
		t.Error("prompt still shown after abort")
	}
}

func TestModel_EnterWithoutSelection(t *testing.T) {
	m, cmd := send(newModel(), keyOf(tea.KeyEnter))
	if isQuit(cmd) {
		t.Fatal("empty confirm must not quit")
	}
	if !strings.Contains(m.View(), "nothing selected") {
		t.Errorf("notice missing from view:\n%s", m.View())
	}
}

func TestModel_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runes("q"), keyOf(tea.KeyEscape), keyOf(tea.KeyCtrlC)} {
		m, cmd := send(newModel(), keyOf(tea.KeySpace), msg)
		if !isQuit(cmd) {
			t.Errorf("%q did not quit", msg.String())
		}
		c := m.Controller()
		if c.State() != selection.Cancelled || len(c.Selected()) != 0 {
			t.Errorf("%q: state = %v, selected = %d", msg.String(), c.State(), len(c.Selected()))
		}
	}
}

func TestModel_FilterTyping(t *testing.T) {
	m, _ := send(newModel(), runes("/"), runes("l"), runes("o"), runes("q"))
	c := m.Controller()
	if c.State() != selection.FilterEditing {
		t.Fatalf("state = %v, want filter editing", c.State())
	}
	// "q" is text while editing, not quit.
	if c.Filter() != "loq" {
		t.Errorf("Filter() = %q, want loq", c.Filter())
	}

	m, _ = send(m, keyOf(tea.KeyBackspace), keyOf(tea.KeyBackspace), keyOf(tea.KeyEnter))
	c = m.Controller()
	if c.State() != selection.Browsing || c.Filter() != "l" {
		t.Fatalf("state = %v, filter = %q", c.State(), c.Filter())
	}
	if len(c.View()) != 1 {
		t.Errorf("View() has %d items, want 1", len(c.View()))
	}

	// Aborting an edit keeps the committed filter.
	m, _ = send(m, runes("/"), runes("x"), keyOf(tea.KeyEscape))
	if m.Controller().Filter() != "l" {
		t.Errorf("Filter() after abort = %q, want l", m.Controller().Filter())
	}
}

func TestModel_CriticalRowIsLocked(t *testing.T) {
	m, _ := send(newModel(), keyOf(tea.KeyEnd), keyOf(tea.KeySpace))
	if len(m.Controller().Selected()) != 0 {
		t.Fatal("critical item was selected")
	}
	if !strings.Contains(m.View(), "critical items cannot be selected") {
		t.Error("rejection notice not rendered")
	}
}

func TestModel_EventsRecorded(t *testing.T) {
	m, _ := send(newModel(), keyOf(tea.KeyDown), runes("s"), runes("?"))
	want := []selection.EventKind{selection.Down, selection.CycleSort, selection.ToggleHelp}
	got := m.Events()
	if len(got) != len(want) {
		t.Fatalf("Events() = %+v", got)
	}
	for i := range want {
		if got[i].Kind != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i].Kind, want[i])
		}
	}
	if !strings.Contains(m.View(), "never selectable") {
		t.Error("help overlay missing risk legend")
	}
}

func TestModel_ViewportFollowsCursor(t *testing.T) {
	var recs []core.FileRecord
	for i := 0; i < 40; i++ {
		recs = append(recs, core.FileRecord{Path: "/d/f" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Size: int64(1000 - i), ModTime: now})
	}
	m := New(selection.New(recs, selection.Options{Now: now}), Options{})
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 15}, keyOf(tea.KeyEnd))
	if m.offset == 0 || m.Controller().Cursor() >= m.offset+m.viewportHeight() {
		t.Errorf("offset = %d, cursor = %d, height = %d", m.offset, m.Controller().Cursor(), m.viewportHeight())
	}
}

func TestPrintStatic(t *testing.T) {
	var buf bytes.Buffer
	PrintStatic(&buf, selection.New(items(), selection.Options{Now: now}).Frame())
	out := buf.String()

	for _, want := range []string{
		"Cleanup candidates: 3",
		"large-files/",
		"+-- low",
		"\\-- critical",
		"/repo/demo.mp4",
		"(tracked by git)",
		"300 MiB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintStatic(&buf, selection.New(nil, selection.Options{Now: now}).Frame())
	if !strings.Contains(buf.String(), "No cleanup candidates") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	rep := clean.Report{
		Results: []clean.Result{
			{Path: "/a", Size: 10 << 20, Outcome: clean.Deleted},
			{Path: "/b", Outcome: clean.Skipped, Reason: clean.ReasonEscalated},
			{Path: "/c", Outcome: clean.Failed, Err: errors.New("permission denied")},
		},
		BytesFreed: 10 << 20,
	}
	var buf bytes.Buffer
	PrintSummary(&buf, rep, false)
	out := buf.String()
	for _, want := range []string{
		"skipped  /b  (risk escalated)",
		"failed   /c  (permission denied)",
		"Freed 10 MiB across 1 item(s); 1 skipped, 1 failed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
