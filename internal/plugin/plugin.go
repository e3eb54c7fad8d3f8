// Package plugin defines the capability contract shared by every cleanup
// source and the registry that runs them.
package plugin

import (
	"context"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// Pattern describes something a plugin cleans or protects.
type Pattern struct {
	Glob        string
	Dir         bool
	Description string
}

// Descriptor identifies a plugin and carries its settings.
type Descriptor struct {
	Name    string
	Version string
	Enabled bool
	Config  map[string]string
}

// Plugin is the uniform contract. Implementations must be safe for
// concurrent Scan calls on different roots.
type Plugin interface {
	Descriptor() Descriptor

	// DetectProject reports whether path is a project this plugin handles.
	DetectProject(path string) bool

	CleanablePatterns() []Pattern
	ProtectedPatterns() []Pattern

	// Scan returns scored candidates beneath root. Recoverable problems are
	// recorded as warnings; the error is reserved for failures that make the
	// whole result unusable.
	Scan(ctx context.Context, root string) ([]core.FileRecord, error)

	// Clean deletes sel, which holds only records this plugin produced.
	Clean(ctx context.Context, sel []core.FileRecord, dryRun bool) (clean.Report, error)
}
