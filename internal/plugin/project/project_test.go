package project

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap/zaptest"

	"github.com/lakshaymaurya-felt/sweep/internal/classify"
	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/gitindex"
	"github.com/lakshaymaurya-felt/sweep/internal/risk"
)

const old = 60 * 24 * time.Hour

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

// age backdates every entry beneath root, children first.
func age(t *testing.T, root string, d time.Duration) {
	t.Helper()
	when := time.Now().Add(-d)
	var paths []string
	err := filepath.WalkDir(root, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := len(paths) - 1; i >= 0; i-- {
		if err := os.Chtimes(paths[i], when, when); err != nil {
			t.Fatal(err)
		}
	}
}

func newPlugin(t *testing.T, kind string, threshold int64) *Plugin {
	t.Helper()
	k, ok := config.GetProjectKind(kind)
	if !ok {
		t.Fatalf("unknown kind %q", kind)
	}
	c, err := classify.New(classify.Options{})
	if err != nil {
		t.Fatal(err)
	}
	logger := zaptest.NewLogger(t)
	return New(Options{
		Kind:       k,
		Threshold:  threshold,
		Classifier: c,
		Engine:     risk.NewEngine(c, risk.Options{}),
		Index:      gitindex.NewIndex(logger, &core.Warnings{}),
	}, logger)
}

func scanMap(t *testing.T, p *Plugin, root string) map[string]core.FileRecord {
	t.Helper()
	recs, err := p.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	m := make(map[string]core.FileRecord, len(recs))
	for _, r := range recs {
		rel, err := filepath.Rel(root, r.Path)
		if err != nil {
			t.Fatal(err)
		}
		m[filepath.ToSlash(rel)] = r
	}
	return m
}

func TestDetectProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "web", "package.json"), 2)
	writeFile(t, filepath.Join(root, "api", "Api.csproj"), 2)
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	js := newPlugin(t, "javascript", 0)
	dotnet := newPlugin(t, "dotnet", 0)

	tests := []struct {
		p    *Plugin
		dir  string
		want bool
	}{
		{js, "web", true},
		{js, "api", false},
		{dotnet, "api", true},
		{dotnet, "empty", false},
		{js, "missing", false},
	}
	for _, tt := range tests {
		if got := tt.p.DetectProject(filepath.Join(root, tt.dir)); got != tt.want {
			t.Errorf("%s.DetectProject(%s) = %v, want %v", tt.p.Descriptor().Name, tt.dir, got, tt.want)
		}
	}
}

func TestScan_JavaScript(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "package.json"), 10)
	writeFile(t, filepath.Join(app, "node_modules", "left-pad", "index.js"), 3000)
	writeFile(t, filepath.Join(app, "node_modules", "left-pad", "node_modules", "x", "i.js"), 1000)
	writeFile(t, filepath.Join(app, ".next", "cache", "chunk.js"), 500)
	// node_modules outside any project is left alone
	writeFile(t, filepath.Join(root, "loose", "node_modules", "y.js"), 5000)
	age(t, root, old)

	got := scanMap(t, newPlugin(t, "javascript", 0), root)

	if len(got) != 2 {
		t.Fatalf("Scan() = %v, want node_modules and .next", got)
	}
	nm, ok := got["app/node_modules"]
	if !ok {
		t.Fatal("app/node_modules not reported")
	}
	if !nm.IsDir || nm.Type != core.TypeArtifact || nm.Size != 4000 {
		t.Errorf("node_modules = %+v", nm)
	}
	if nm.Risk != core.RiskSafe {
		t.Errorf("node_modules risk = %v (%s), want safe", nm.Risk, nm.Reason)
	}
	if _, ok := got["app/.next"]; !ok {
		t.Error("app/.next not reported")
	}
}

func TestScan_PythonPatterns(t *testing.T) {
	root := t.TempDir()
	py := filepath.Join(root, "svc")
	writeFile(t, filepath.Join(py, "pyproject.toml"), 10)
	writeFile(t, filepath.Join(py, "svc", "core", "__pycache__", "m.cpython-312.pyc"), 100)
	writeFile(t, filepath.Join(py, "svc.egg-info", "PKG-INFO"), 100)
	writeFile(t, filepath.Join(py, ".venv", "lib", "site.py"), 100)
	writeFile(t, filepath.Join(py, ".venv", ".env"), 10)
	age(t, root, old)

	got := scanMap(t, newPlugin(t, "python", 0), root)

	for _, want := range []string{"svc/svc/core/__pycache__", "svc/svc.egg-info", "svc/.venv"} {
		if _, ok := got[want]; !ok {
			t.Errorf("%s not reported; got %v", want, got)
		}
	}
	venv := got["svc/.venv"]
	if venv.Risk != core.RiskCritical || venv.Reason != reasonContainsProtected {
		t.Errorf(".venv = %v (%s), want critical because of .env", venv.Risk, venv.Reason)
	}
	if cache := got["svc/svc/core/__pycache__"]; cache.Risk != core.RiskSafe {
		t.Errorf("__pycache__ = %v (%s), want safe", cache.Risk, cache.Reason)
	}
}

// A protected file could hide in a directory that cannot be read, so the
// artifact is treated as if it held one.
func TestScan_UnreadableContentsAreCritical(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "package.json"), 10)
	writeFile(t, filepath.Join(app, "node_modules", "left-pad", "index.js"), 100)
	locked := filepath.Join(app, "node_modules", "private")
	writeFile(t, filepath.Join(locked, "id_rsa"), 100)
	age(t, root, old)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	p := newPlugin(t, "javascript", 0)
	got := scanMap(t, p, root)
	nm, ok := got["app/node_modules"]
	if !ok {
		t.Fatalf("app/node_modules not reported: %v", got)
	}
	if nm.Risk != core.RiskCritical || nm.Reason != reasonContainsUnreadable {
		t.Errorf("node_modules = %v (%s), want critical because of unreadable contents", nm.Risk, nm.Reason)
	}
	if p.opts.Warnings.Len() == 0 {
		t.Error("no warning recorded for the unreadable directory")
	}

	lvl, err := p.Revalidate(context.Background(), nm)
	if err != nil || lvl != core.RiskCritical {
		t.Errorf("Revalidate() = %v, %v; want critical", lvl, err)
	}
}

func TestScan_RecentProjectIsHigh(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "crate", "target", "debug", "app"), 100)
	age(t, root, old)
	// Touching the manifest marks the whole project as active.
	writeFile(t, filepath.Join(root, "crate", "Cargo.toml"), 10)

	got := scanMap(t, newPlugin(t, "rust", 0), root)
	target, ok := got["crate/target"]
	if !ok {
		t.Fatalf("crate/target not reported: %v", got)
	}
	if target.Risk != core.RiskHigh || target.Reason != "recently modified" {
		t.Errorf("target = %v (%s), want high", target.Risk, target.Reason)
	}
}

func TestScan_Threshold(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Cargo.toml"), 1)
	writeFile(t, filepath.Join(root, "a", "target", "big"), 2048)
	writeFile(t, filepath.Join(root, "b", "Cargo.toml"), 1)
	writeFile(t, filepath.Join(root, "b", "target", "small"), 10)

	got := scanMap(t, newPlugin(t, "rust", 1024), root)
	if _, ok := got["a/target"]; !ok || len(got) != 1 {
		t.Errorf("Scan() = %v, want only a/target", got)
	}
}

func TestScan_GitState(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pom.xml"), 10)
	writeFile(t, filepath.Join(root, ".gitignore"), 0)
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(".gradle/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "build", "checked-in.jar"), 100)

	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"pom.xml", ".gitignore", "build/checked-in.jar"} {
		if _, err := wt.Add(f); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, ".gradle", "caches", "x.bin"), 100)
	writeFile(t, filepath.Join(root, "target", "classes", "A.class"), 100)
	age(t, filepath.Join(root, ".gradle"), old)
	age(t, filepath.Join(root, "target"), old)
	age(t, filepath.Join(root, "pom.xml"), old)

	got := scanMap(t, newPlugin(t, "java", 0), root)

	tests := []struct {
		path string
		git  core.GitStatus
		risk core.RiskLevel
	}{
		{"build", core.GitTracked, core.RiskCritical},
		{".gradle", core.GitIgnored, core.RiskSafe},
		{"target", core.GitUntracked, core.RiskSafe},
	}
	for _, tt := range tests {
		rec, ok := got[tt.path]
		if !ok {
			t.Errorf("%s not reported", tt.path)
			continue
		}
		if rec.Git != tt.git || rec.Risk != tt.risk {
			t.Errorf("%s = %v/%v (%s), want %v/%v", tt.path, rec.Git, rec.Risk, rec.Reason, tt.git, tt.risk)
		}
	}
}

func TestClean_RemovesArtifactDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "package.json"), 10)
	writeFile(t, filepath.Join(root, "app", "node_modules", "dep", "index.js"), 700)
	age(t, root, old)

	p := newPlugin(t, "javascript", 0)
	got := scanMap(t, p, root)
	nm := got["app/node_modules"]

	dry, err := p.Clean(context.Background(), []core.FileRecord{nm}, true)
	if err != nil {
		t.Fatal(err)
	}
	if dry.Results[0].Outcome != clean.WouldDelete || dry.BytesFreed != 700 {
		t.Errorf("dry run = %+v", dry)
	}

	rep, err := p.Clean(context.Background(), []core.FileRecord{nm}, false)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Results[0].Outcome != clean.Deleted || rep.BytesFreed != 700 {
		t.Errorf("clean = %+v", rep)
	}
	if _, err := os.Stat(nm.Path); !os.IsNotExist(err) {
		t.Errorf("node_modules still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "app", "package.json")); err != nil {
		t.Error("project manifest removed")
	}
}

func TestClean_ProtectedFileAppearsAfterScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "package.json"), 10)
	writeFile(t, filepath.Join(root, "app", "node_modules", "dep", "index.js"), 700)
	age(t, root, old)

	p := newPlugin(t, "javascript", 0)
	nm := scanMap(t, p, root)["app/node_modules"]

	writeFile(t, filepath.Join(nm.Path, "deploy.pem"), 10)

	rep, err := p.Clean(context.Background(), []core.FileRecord{nm}, false)
	if err != nil {
		t.Fatal(err)
	}
	if res := rep.Results[0]; res.Outcome != clean.Skipped || res.Reason != clean.ReasonEscalated {
		t.Errorf("got %v (%q), want skipped for escalation", res.Outcome, res.Reason)
	}
}

func TestCleanablePatterns(t *testing.T) {
	p := newPlugin(t, "python", 0)
	var globs []string
	for _, pat := range p.CleanablePatterns() {
		globs = append(globs, pat.Glob)
	}
	want := map[string]bool{".venv": true, "*.egg-info": true, "**/__pycache__": true}
	for _, g := range globs {
		delete(want, g)
	}
	if len(want) != 0 {
		t.Errorf("missing patterns %v in %v", want, globs)
	}
	if len(p.ProtectedPatterns()) == 0 {
		t.Error("python should protect pip settings")
	}
}
