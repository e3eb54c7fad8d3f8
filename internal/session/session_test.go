package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
)

const (
	mb  = 1 << 20
	day = 24 * time.Hour
)

func sparse(t *testing.T, path string, size int64, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	f.Close()
	when := time.Now().Add(-age)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

func newConfig(t *testing.T, root, minSize string, plugins ...string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Roots = []string{root}
	cfg.MinSize = minSize
	cfg.Workers = 4
	if len(plugins) > 0 {
		cfg.Plugins = plugins
	}
	if err := cfg.Resolve(); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func newSession(t *testing.T, cfg *config.Config) (*Session, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	s, err := New(cfg, zaptest.NewLogger(t), m)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, m
}

func names(recs []core.FileRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, filepath.Base(r.Path))
	}
	sort.Strings(out)
	return out
}

func TestScan_Threshold(t *testing.T) {
	root := t.TempDir()
	sparse(t, filepath.Join(root, "small.iso"), 50*mb, 90*day)
	sparse(t, filepath.Join(root, "medium.iso"), 150*mb, 90*day)
	sparse(t, filepath.Join(root, "nested", "large.iso"), 300*mb, 90*day)

	s, m := newSession(t, newConfig(t, root, "100MB"))
	recs, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	got := names(recs)
	if len(got) != 2 || got[0] != "large.iso" || got[1] != "medium.iso" {
		t.Errorf("Scan() = %v, want large.iso and medium.iso", got)
	}
	for _, r := range recs {
		if r.Size < s.Config().Threshold {
			t.Errorf("%s below threshold", r.Path)
		}
		if r.Plugin != "large-files" {
			t.Errorf("%s plugin = %q", r.Path, r.Plugin)
		}
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "sweep_scan_candidates_total"); err != nil || n == 0 {
		t.Errorf("candidate metrics = %d, %v", n, err)
	}
}

func TestScan_OlderThan(t *testing.T) {
	root := t.TempDir()
	sparse(t, filepath.Join(root, "stale.iso"), 2*mb, 90*day)
	sparse(t, filepath.Join(root, "fresh.iso"), 2*mb, 2*day)

	cfg := newConfig(t, root, "1MB")
	cfg.OlderThanDays = 30
	s, _ := newSession(t, cfg)

	recs, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := names(recs); len(got) != 1 || got[0] != "stale.iso" {
		t.Errorf("Scan() = %v, want only stale.iso", got)
	}
}

func TestScan_ProjectArtifactsAbsorbLargeFiles(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	sparse(t, filepath.Join(app, "pyproject.toml"), 10, 90*day)
	sparse(t, filepath.Join(app, ".venv", "lib", "torch.so"), 3*mb, 90*day)
	sparse(t, filepath.Join(root, "video.mkv"), 2*mb, 90*day)
	old := time.Now().Add(-90 * day)
	for _, d := range []string{filepath.Join(app, ".venv", "lib"), filepath.Join(app, ".venv")} {
		if err := os.Chtimes(d, old, old); err != nil {
			t.Fatal(err)
		}
	}

	s, _ := newSession(t, newConfig(t, root, "1MB", "large-files", "python"))
	recs, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := names(recs); len(got) != 2 || got[0] != ".venv" || got[1] != "video.mkv" {
		t.Fatalf("Scan() = %v, want .venv and video.mkv", got)
	}
	for _, r := range recs {
		if filepath.Base(r.Path) == ".venv" {
			if r.Plugin != "python" || !r.IsDir {
				t.Errorf(".venv record = %+v", r)
			}
			// torch.so is a binary, which the directory inherits.
			if r.Risk != core.RiskHigh {
				t.Errorf(".venv risk = %v (%s), want high", r.Risk, r.Reason)
			}
		}
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name  string
		mod   func(*config.Config)
		field string
	}{
		{"zero threshold", func(c *config.Config) { c.Threshold = 0 }, "min-size"},
		{"missing root", func(c *config.Config) { c.Roots = []string{filepath.Join(root, "nope")} }, "roots"},
		{"unknown plugin", func(c *config.Config) { c.Plugins = []string{"cobol"} }, "plugins"},
		{"negated pattern", func(c *config.Config) { c.ProtectedPatterns = []string{"!*.log"} }, "protect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newConfig(t, root, "1MB")
			tt.mod(cfg)
			_, err := New(cfg, zaptest.NewLogger(t), nil)
			var cfgErr *config.Error
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("New() = %v, want config error for %s", err, tt.field)
			}
		})
	}
}

func TestExecute_RequiresConfirmation(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "old.iso")
	sparse(t, target, 2*mb, 90*day)

	s, _ := newSession(t, newConfig(t, root, "1MB"))
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	c := s.Controller(time.Now())
	c, _ = c.Next(selection.Event{Kind: selection.Toggle})

	if _, err := s.Execute(context.Background(), c); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Execute(browsing) = %v, want ErrNotConfirmed", err)
	}

	cancelled, _ := c.Next(selection.Event{Kind: selection.Cancel})
	if _, err := s.Execute(context.Background(), cancelled); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Execute(cancelled) = %v, want ErrNotConfirmed", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("file removed without confirmation: %v", err)
	}
}

func TestExecute_EndToEnd(t *testing.T) {
	for _, dryRun := range []bool{true, false} {
		root := t.TempDir()
		iso := filepath.Join(root, "old.iso")
		key := filepath.Join(root, "backup.key")
		sparse(t, iso, 4*mb, 90*day)
		sparse(t, key, 3*mb, 90*day)

		cfg := newConfig(t, root, "1MB")
		cfg.DryRun = dryRun
		s, m := newSession(t, cfg)
		if _, err := s.Scan(context.Background()); err != nil {
			t.Fatal(err)
		}

		c, _ := selection.Replay(s.Results(), selection.Options{Now: time.Now()}, []selection.Event{
			{Kind: selection.ToggleAll},
			{Kind: selection.Confirm},
		})
		if got := names(c.Selected()); len(got) != 1 || got[0] != "old.iso" {
			t.Fatalf("Selected() = %v, want only old.iso", got)
		}

		rep, err := s.Execute(context.Background(), c)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		want := clean.Deleted
		if dryRun {
			want = clean.WouldDelete
		}
		if len(rep.Results) != 1 || rep.Results[0].Outcome != want || rep.BytesFreed != 4*mb {
			t.Errorf("dryRun=%v: report = %+v", dryRun, rep)
		}

		_, err = os.Stat(iso)
		if dryRun != (err == nil) {
			t.Errorf("dryRun=%v: stat old.iso = %v", dryRun, err)
		}
		if _, err := os.Stat(key); err != nil {
			t.Errorf("protected key removed: %v", err)
		}
		if n, err := testutil.GatherAndCount(m.Registry(), "sweep_clean_results_total"); err != nil || n != 1 {
			t.Errorf("dryRun=%v: clean result series = %d, %v", dryRun, n, err)
		}
	}
}

func TestWriteMetrics(t *testing.T) {
	root := t.TempDir()
	cfg := newConfig(t, root, "1MB")
	cfg.MetricsFile = filepath.Join(t.TempDir(), "sweep.prom")

	s, _ := newSession(t, cfg)
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteMetrics(); err != nil {
		t.Fatalf("WriteMetrics() error = %v", err)
	}
	if _, err := os.Stat(cfg.MetricsFile); err != nil {
		t.Errorf("metrics file not written: %v", err)
	}
}
