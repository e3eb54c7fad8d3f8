package plugin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

type fakePlugin struct {
	name    string
	records map[string][]core.FileRecord
	scanErr error

	// onClean runs inside Clean while the plugin holds its path locks.
	onClean func()
	cleaned [][]core.FileRecord
	mu      sync.Mutex
}

func (f *fakePlugin) Descriptor() Descriptor       { return Descriptor{Name: f.name, Version: "test"} }
func (f *fakePlugin) DetectProject(string) bool    { return false }
func (f *fakePlugin) CleanablePatterns() []Pattern { return nil }
func (f *fakePlugin) ProtectedPatterns() []Pattern { return nil }

func (f *fakePlugin) Scan(_ context.Context, root string) ([]core.FileRecord, error) {
	return f.records[root], f.scanErr
}

func (f *fakePlugin) Clean(_ context.Context, sel []core.FileRecord, dryRun bool) (clean.Report, error) {
	if f.onClean != nil {
		f.onClean()
	}
	f.mu.Lock()
	f.cleaned = append(f.cleaned, sel)
	f.mu.Unlock()

	var rep clean.Report
	for _, rec := range sel {
		rep.Results = append(rep.Results, clean.Result{Path: rec.Path, Plugin: f.name, Size: rec.Size, Outcome: clean.WouldDelete})
		rep.BytesFreed += rec.Size
	}
	return rep, nil
}

func newRegistry(t *testing.T, plugins ...Plugin) *Registry {
	t.Helper()
	r := NewRegistry(zaptest.NewLogger(t))
	var names []string
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
		names = append(names, p.Descriptor().Name)
	}
	if err := r.Activate(names); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistry_RegisterAndActivate(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	if err := r.Register(&fakePlugin{name: "large-files"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakePlugin{name: "python"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakePlugin{name: "python"}); err == nil {
		t.Error("duplicate registration should fail")
	}

	err := r.Activate([]string{"python", "cobol"})
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "plugins" {
		t.Fatalf("Activate(unknown) = %v, want config error", err)
	}
	if len(r.Active()) != 0 {
		t.Error("failed Activate must not change the active set")
	}

	if err := r.Activate([]string{"python"}); err != nil {
		t.Fatal(err)
	}
	ds := r.Descriptors()
	if len(ds) != 2 || ds[0].Enabled || !ds[1].Enabled {
		t.Errorf("Descriptors() = %+v", ds)
	}
	if act := r.Active(); len(act) != 1 || act[0].Descriptor().Name != "python" {
		t.Errorf("Active() = %v", act)
	}
}

func TestRegistry_ScanMergesAndTags(t *testing.T) {
	large := &fakePlugin{name: "large-files", records: map[string][]core.FileRecord{
		"/w": {
			{Path: "/w/video.mp4", Size: 300, Risk: core.RiskLow},
			{Path: "/w/app/node_modules/big.bin", Size: 200, Risk: core.RiskMedium},
			{Path: "/w/shared.log", Size: 150, Risk: core.RiskSafe},
		},
	}}
	js := &fakePlugin{name: "javascript", records: map[string][]core.FileRecord{
		"/w": {
			{Path: "/w/app/node_modules", Size: 900, IsDir: true, Risk: core.RiskSafe},
			{Path: "/w/shared.log", Size: 150, Risk: core.RiskHigh},
		},
	}}
	r := newRegistry(t, large, js)

	got, err := r.Scan(context.Background(), []string{"/w"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []struct {
		path   string
		plugin string
		risk   core.RiskLevel
	}{
		{"/w/app/node_modules", "javascript", core.RiskMedium},
		{"/w/shared.log", "javascript", core.RiskHigh},
		{"/w/video.mp4", "large-files", core.RiskLow},
	}
	if len(got) != len(want) {
		t.Fatalf("Scan() = %d records, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Path != w.path || got[i].Plugin != w.plugin || got[i].Risk != w.risk {
			t.Errorf("record %d = %s/%s/%v, want %s/%s/%v", i, got[i].Path, got[i].Plugin, got[i].Risk, w.path, w.plugin, w.risk)
		}
	}
}

func TestRegistry_ScanKeepsResultsOnPluginError(t *testing.T) {
	ok := &fakePlugin{name: "ok", records: map[string][]core.FileRecord{"/w": {{Path: "/w/a"}}}}
	bad := &fakePlugin{name: "bad", scanErr: errors.New("boom")}
	r := newRegistry(t, ok, bad)

	got, err := r.Scan(context.Background(), []string{"/w"})
	if err == nil {
		t.Error("expected the failing plugin's error")
	}
	if len(got) != 1 || got[0].Path != "/w/a" {
		t.Errorf("Scan() = %+v, want the healthy plugin's record", got)
	}
}

func TestMerge_NestedDirectories(t *testing.T) {
	got := Merge([]core.FileRecord{
		{Path: "/p/target", IsDir: true, Risk: core.RiskSafe},
		{Path: "/p/target/debug", IsDir: true, Risk: core.RiskSafe},
		{Path: "/p/target/debug/app", Risk: core.RiskHigh, Reason: "binary file"},
		{Path: "/p/target-notes.txt", Risk: core.RiskLow},
	})
	if len(got) != 2 {
		t.Fatalf("Merge() = %+v", got)
	}
	if got[0].Path != "/p/target" || got[0].Risk != core.RiskHigh || got[0].Reason != "binary file" {
		t.Errorf("outer dir = %+v, want risk raised to high", got[0])
	}
	if got[1].Path != "/p/target-notes.txt" {
		t.Errorf("sibling with shared prefix was folded: %+v", got)
	}
}

func TestRegistry_CleanGroupsByPlugin(t *testing.T) {
	a := &fakePlugin{name: "a"}
	b := &fakePlugin{name: "b"}
	r := newRegistry(t, a, b)

	sel := []core.FileRecord{
		{Path: "/x/1", Plugin: "a", Size: 1},
		{Path: "/y/2", Plugin: "b", Size: 2},
		{Path: "/x/3", Plugin: "a", Size: 3},
		{Path: "/z/4", Plugin: "gone", Size: 4},
	}
	rep, err := r.Clean(context.Background(), sel, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.cleaned) != 1 || len(a.cleaned[0]) != 2 || len(b.cleaned) != 1 {
		t.Errorf("a got %v, b got %v", a.cleaned, b.cleaned)
	}
	if rep.BytesFreed != 6 {
		t.Errorf("BytesFreed = %d, want 6", rep.BytesFreed)
	}
	if rep.Count(clean.Skipped) != 1 {
		t.Errorf("record from an inactive plugin should be skipped: %+v", rep.Results)
	}
}

func TestRegistry_CleanSerializesOverlappingTrees(t *testing.T) {
	var running, peak atomic.Int32
	track := func() {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
	}

	a := &fakePlugin{name: "a", onClean: track}
	b := &fakePlugin{name: "b", onClean: track}
	r := newRegistry(t, a, b)

	sel := []core.FileRecord{
		{Path: "/proj/node_modules", Plugin: "a"},
		{Path: "/proj/node_modules/huge.tar", Plugin: "b"},
	}
	if _, err := r.Clean(context.Background(), sel, true); err != nil {
		t.Fatal(err)
	}
	if peak.Load() != 1 {
		t.Errorf("overlapping cleans ran concurrently (peak %d)", peak.Load())
	}
}
