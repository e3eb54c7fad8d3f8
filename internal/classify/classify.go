// Package classify decides what kind of file a path is and whether it
// matches protected or test-data naming patterns.
package classify

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// Options extends the built-in pattern sets.
type Options struct {
	ProtectedExtensions []string
	ProtectedPatterns   []string
	TestDataPatterns    []string

	// DisableSniff turns off content signature checks.
	DisableSniff bool
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	protected    []gitignore.Pattern
	protectedExt map[string]bool
	testData     []gitignore.Pattern
	sniff        bool
}

// Error reports a file whose content could not be sniffed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("classify %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// New validates the caller-supplied patterns and builds a Classifier.
// Malformed input yields a *config.Error.
func New(opts Options) (*Classifier, error) {
	c := &Classifier{
		protectedExt: make(map[string]bool, len(opts.ProtectedExtensions)),
		sniff:        !opts.DisableSniff,
	}

	for _, ext := range opts.ProtectedExtensions {
		e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if e == "" || strings.ContainsAny(e, `/\*?[`) {
			return nil, &config.Error{Field: "protect-ext", Msg: fmt.Sprintf("malformed extension %q", ext)}
		}
		c.protectedExt[e] = true
	}

	var err error
	if c.protected, err = compile("protect", defaultProtected, opts.ProtectedPatterns); err != nil {
		return nil, err
	}
	if c.testData, err = compile("test-data", defaultTestData, opts.TestDataPatterns); err != nil {
		return nil, err
	}
	return c, nil
}

func compile(field string, builtin, extra []string) ([]gitignore.Pattern, error) {
	out := make([]gitignore.Pattern, 0, len(builtin)+len(extra))
	for _, p := range builtin {
		out = append(out, gitignore.ParsePattern(p, nil))
	}
	for _, p := range extra {
		p = strings.ToLower(strings.TrimSpace(p))
		if err := validatePattern(p); err != nil {
			return nil, &config.Error{Field: field, Msg: fmt.Sprintf("malformed pattern %q", p), Err: err}
		}
		out = append(out, gitignore.ParsePattern(p, nil))
	}
	return out, nil
}

func validatePattern(p string) error {
	if p == "" {
		return fmt.Errorf("empty pattern")
	}
	if strings.HasPrefix(p, "!") {
		return fmt.Errorf("negated patterns are not supported")
	}
	for _, seg := range strings.Split(strings.Trim(p, "/"), "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return err
		}
	}
	return nil
}

// Classify returns the file type of path. See ClassifyDetail.
func (c *Classifier) Classify(path string) core.FileType {
	t, _ := c.ClassifyDetail(path)
	return t
}

// ClassifyDetail classifies by extension, then sniffs the content. A
// database or executable signature overrides any extension, so a renamed
// database never passes for a log or a temp file. Other signatures only
// decide files whose extension is unrecognized. When sniffing fails the
// extension result is returned together with an *Error.
func (c *Classifier) ClassifyDetail(path string) (core.FileType, error) {
	t := ByExtension(path)
	if !c.sniff || t == core.TypeDatabase || t == core.TypeBinary {
		return t, nil
	}
	m, err := mimetype.DetectFile(core.LongPath(path))
	if err != nil {
		return t, &Error{Path: path, Err: err}
	}
	switch sniffed := sniffType(m); {
	case sniffed == core.TypeDatabase, sniffed == core.TypeBinary:
		return sniffed, nil
	case t == core.TypeUnknown:
		return sniffed, nil
	}
	return t, nil
}

func sniffType(m *mimetype.MIME) core.FileType {
	for ; m != nil; m = m.Parent() {
		for mime, t := range mimeTypes {
			if m.Is(mime) {
				return t
			}
		}
		switch strings.SplitN(m.String(), "/", 2)[0] {
		case "image", "audio", "video":
			return core.TypeMedia
		}
	}
	return core.TypeUnknown
}

// ByExtension classifies path by its extension alone.
func ByExtension(path string) core.FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return core.TypeUnknown
	}
	return extensionTypes[ext]
}

// MatchesProtected reports whether path, or any of its parent directories,
// matches a protected pattern or extension.
func (c *Classifier) MatchesProtected(path string) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(parts[len(parts)-1]), ".")
	if ext != "" && c.protectedExt[ext] {
		return true
	}
	return matchAny(c.protected, parts)
}

// MatchesTestData reports whether path looks like test fixtures or sample
// data.
func (c *Classifier) MatchesTestData(path string) bool {
	return matchAny(c.testData, splitPath(path))
}

// IsIgnoreStyle reports whether files of type t are regenerable leftovers.
func IsIgnoreStyle(t core.FileType) bool {
	switch t {
	case core.TypeLog, core.TypeArchive, core.TypeArtifact:
		return true
	}
	return false
}

func matchAny(patterns []gitignore.Pattern, parts []string) bool {
	for _, p := range patterns {
		if p.Match(parts, false) == gitignore.Exclude {
			return true
		}
	}
	return false
}

// splitPath lower-cases path and splits it into components, dropping the
// volume name.
func splitPath(p string) []string {
	p = filepath.Clean(p)
	p = p[len(filepath.VolumeName(p)):]
	p = strings.ToLower(filepath.ToSlash(p))
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}
