// Package risk scores file records into ordered safety tiers.
package risk

import (
	"time"

	"github.com/lakshaymaurya-felt/sweep/internal/classify"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// DefaultRecencyWindow is how recently a file may have been modified and
// still be considered in active use.
const DefaultRecencyWindow = 7 * 24 * time.Hour

// Facts are the inputs the tier table is evaluated against.
type Facts struct {
	Protected  bool
	Tracked    bool
	Unverified bool
	Recent     bool
	TestData   bool
	Ignored    bool
	Type       core.FileType
}

// ignoreStyle reports regenerable leftovers: logs, archives, build
// artifacts and anything git ignores.
func (f Facts) ignoreStyle() bool {
	return f.Ignored || classify.IsIgnoreStyle(f.Type)
}

// Verdict is a tier and the rule that produced it.
type Verdict struct {
	Level  core.RiskLevel
	Reason string
}

// Policy holds the session-level switches that affect scoring.
type Policy struct {
	// IncludeTracked lets git-tracked files fall through to later tiers.
	IncludeTracked bool
}

type rule struct {
	level  core.RiskLevel
	reason string
	match  func(Facts, Policy) bool
}

// tiers is evaluated top-down; the first matching rule wins. Rules are
// grouped by level from most to least protective.
var tiers = []rule{
	// Critical
	{core.RiskCritical, "protected pattern", func(f Facts, _ Policy) bool { return f.Protected }},
	{core.RiskCritical, "tracked by git", func(f Facts, p Policy) bool { return f.Tracked && !p.IncludeTracked }},
	{core.RiskCritical, "repository unverifiable", func(f Facts, _ Policy) bool { return f.Unverified }},

	// High
	{core.RiskHigh, "recently modified", func(f Facts, _ Policy) bool { return f.Recent }},
	{core.RiskHigh, "database file", func(f Facts, _ Policy) bool { return f.Type == core.TypeDatabase }},
	{core.RiskHigh, "binary file", func(f Facts, _ Policy) bool { return f.Type == core.TypeBinary }},

	// Medium
	{core.RiskMedium, "test data", func(f Facts, _ Policy) bool { return f.TestData }},
	{core.RiskMedium, "unknown type", func(f Facts, _ Policy) bool { return f.Type == core.TypeUnknown }},

	// Low
	{core.RiskLow, "old file", func(f Facts, _ Policy) bool { return !f.Recent && !f.ignoreStyle() }},

	// Safe
	{core.RiskSafe, "old regenerable file", func(f Facts, _ Policy) bool { return !f.Recent && f.ignoreStyle() }},
}

// fallback applies when no rule matches.
var fallback = Verdict{Level: core.RiskHigh, Reason: "unclassified"}

// Evaluate runs the tier table over f.
func Evaluate(f Facts, p Policy) Verdict {
	for _, r := range tiers {
		if r.match(f, p) {
			return Verdict{Level: r.level, Reason: r.reason}
		}
	}
	return fallback
}

// Options configures an Engine.
type Options struct {
	RecencyWindow time.Duration
	Policy        Policy

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Engine derives Facts from a record and scores it. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	classifier *classify.Classifier
	window     time.Duration
	policy     Policy
	now        func() time.Time
}

// NewEngine creates an Engine backed by classifier.
func NewEngine(classifier *classify.Classifier, opts Options) *Engine {
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = DefaultRecencyWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		classifier: classifier,
		window:     opts.RecencyWindow,
		policy:     opts.Policy,
		now:        opts.Now,
	}
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy { return e.policy }

// Facts derives the scoring inputs for rec. Git fields and Type must
// already be filled in.
func (e *Engine) Facts(rec core.FileRecord) Facts {
	return Facts{
		Protected:  e.classifier.MatchesProtected(rec.Path),
		Tracked:    rec.Tracked || rec.Git == core.GitTracked || rec.Git == core.GitModified,
		Unverified: rec.Git == core.GitUnverified,
		Recent:     e.isRecent(rec.ModTime),
		TestData:   e.classifier.MatchesTestData(rec.Path),
		Ignored:    rec.Git == core.GitIgnored,
		Type:       rec.Type,
	}
}

// Score evaluates rec against the tier table.
func (e *Engine) Score(rec core.FileRecord) Verdict {
	return Evaluate(e.Facts(rec), e.policy)
}

// isRecent treats future and unknown timestamps as recent.
func (e *Engine) isRecent(mod time.Time) bool {
	if mod.IsZero() {
		return true
	}
	return e.now().Sub(mod) < e.window
}

// ShouldInclude reports whether rec was last accessed more than
// olderThanDays days before now.
func ShouldInclude(rec core.FileRecord, olderThanDays int, now time.Time) bool {
	return now.Sub(rec.AccessTime) > time.Duration(olderThanDays)*24*time.Hour
}
