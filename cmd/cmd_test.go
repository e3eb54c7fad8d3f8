package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func init() {
	stdoutIsTerminal = func() bool { return false }
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func sparseFile(t *testing.T, path string, size int64, mod time.Time) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatal(err)
	}
}

// Without a terminal clean lists candidates and never deletes.
func TestClean_StaticListing(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-120 * 24 * time.Hour)
	big := filepath.Join(dir, "disk.iso")
	sparseFile(t, big, 200<<20, old)
	sparseFile(t, filepath.Join(dir, "small.iso"), 1<<20, old)
	promFile := filepath.Join(t.TempDir(), "sweep.prom")

	out, err := execute(t, "clean", dir, "--min-size", "100MB", "--metrics-file", promFile)
	if err != nil {
		t.Fatalf("clean: %v\n%s", err, out)
	}
	if !strings.Contains(out, big) {
		t.Errorf("output missing %s:\n%s", big, out)
	}
	if strings.Contains(out, "small.iso") {
		t.Errorf("file below threshold listed:\n%s", out)
	}
	if !strings.Contains(out, "Run in an interactive terminal") {
		t.Errorf("static hint missing:\n%s", out)
	}
	if _, err := os.Stat(big); err != nil {
		t.Errorf("static mode touched the file: %v", err)
	}

	prom, err := os.ReadFile(promFile)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "sweep_scan_entries_total") {
		t.Errorf("metrics file missing scan counter:\n%s", prom)
	}
}

func TestClean_BadMinSize(t *testing.T) {
	_, err := execute(t, "clean", t.TempDir(), "--min-size", "lots")
	if err == nil || !strings.Contains(err.Error(), "min-size") {
		t.Errorf("err = %v, want a min-size error", err)
	}
}

func TestApplyLanguageFlags(t *testing.T) {
	if err := cleanCmd.Flags().Set("python", "true"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cleanCmd.Flags().Set("python", "false")
	})
	if err := applyLanguageFlags(cleanCmd); err != nil {
		t.Fatal(err)
	}
	got, _ := cleanCmd.Flags().GetStringSlice("plugins")
	if strings.Join(got, ",") != "large-files,python" {
		t.Errorf("plugins = %v, want [large-files python]", got)
	}
}

func TestPlugins_ListsEveryPlugin(t *testing.T) {
	out, err := execute(t, "plugins")
	if err != nil {
		t.Fatalf("plugins: %v", err)
	}
	for _, want := range []string{"large-files", "javascript", "python", "rust", "java", "dotnet"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := execute(t, "completion", shell)
		if err != nil || !strings.Contains(out, "sweep") {
			t.Errorf("%s: err = %v, output %d bytes", shell, err, len(out))
		}
	}
	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	out, err := execute(t, "version")
	if err != nil || !strings.Contains(out, "sweep 1.2.3 (abc)") {
		t.Errorf("version = %q, %v", out, err)
	}
}
