package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved session configuration.
type Config struct {
	// Scan settings
	Roots         []string `mapstructure:"roots"`
	MinSize       string   `mapstructure:"min-size"`   // human-readable, e.g. "100MB"
	OlderThanDays int      `mapstructure:"older-than"` // 0 disables the age filter
	RecentDays    int      `mapstructure:"recent-days"`
	Workers       int      `mapstructure:"workers"`
	Exclude       []string `mapstructure:"exclude"`

	// Safety overrides
	IncludeTracked   bool `mapstructure:"include-tracked"`
	IncludeProtected bool `mapstructure:"include-protected"`

	// Pattern extensions merged with the built-in defaults
	ProtectedExtensions []string `mapstructure:"protect-ext"`
	ProtectedPatterns   []string `mapstructure:"protect"`
	TestDataPatterns    []string `mapstructure:"test-data"`

	Plugins []string `mapstructure:"plugins"`
	DryRun  bool     `mapstructure:"dry-run"`

	// Output settings
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	LogFile     string `mapstructure:"log-file"`
	MetricsFile string `mapstructure:"metrics-file"`

	// Threshold is MinSize resolved to bytes by Resolve.
	Threshold int64 `mapstructure:"-"`
}

// Error is a fatal configuration problem detected before scanning starts.
type Error struct {
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Defaults returns a configuration with every default applied.
func Defaults() Config {
	return Config{
		Roots:      []string{"."},
		MinSize:    "100MB",
		RecentDays: 7,
		Workers:    runtime.NumCPU(),
		Exclude:    []string{".git", ".hg", ".svn"},
		Plugins:    []string{"large-files"},
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// Load builds a Config from def, SWEEP_* environment variables and the
// command's flags, in increasing order of precedence. Positional args, when
// given, replace the root list.
func Load(flags *pflag.FlagSet, args []string, def Config) (*Config, error) {
	v := viper.New()

	v.SetDefault("roots", def.Roots)
	v.SetDefault("min-size", def.MinSize)
	v.SetDefault("older-than", def.OlderThanDays)
	v.SetDefault("recent-days", def.RecentDays)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("exclude", def.Exclude)
	v.SetDefault("include-tracked", false)
	v.SetDefault("include-protected", false)
	v.SetDefault("plugins", def.Plugins)
	v.SetDefault("dry-run", false)
	v.SetDefault("log-level", def.LogLevel)
	v.SetDefault("log-format", def.LogFormat)

	// Read environment variables
	v.SetEnvPrefix("SWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}
	if len(args) > 0 {
		v.Set("roots", args)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Field: "config", Msg: "cannot decode", Err: err}
	}
	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve parses the human-readable size and normalizes root paths.
func (c *Config) Resolve() error {
	if c.MinSize != "" {
		n, err := humanize.ParseBytes(c.MinSize)
		if err != nil {
			return &Error{Field: "min-size", Msg: fmt.Sprintf("cannot parse %q", c.MinSize), Err: err}
		}
		c.Threshold = int64(n)
	}

	roots := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		if r == "" {
			continue
		}
		if strings.HasPrefix(r, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				r = filepath.Join(home, strings.TrimPrefix(r, "~"))
			}
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return &Error{Field: "roots", Msg: fmt.Sprintf("cannot resolve %q", r), Err: err}
		}
		roots = append(roots, abs)
	}
	c.Roots = roots
	return nil
}

// Validate checks the resolved configuration. Every returned error is an
// *Error.
func (c *Config) Validate() error {
	var errs []error
	if c.Threshold <= 0 {
		errs = append(errs, &Error{Field: "min-size", Msg: "threshold must be greater than zero"})
	}
	if c.OlderThanDays < 0 {
		errs = append(errs, &Error{Field: "older-than", Msg: "must not be negative"})
	}
	if c.RecentDays < 0 {
		errs = append(errs, &Error{Field: "recent-days", Msg: "must not be negative"})
	}
	if c.Workers < 0 {
		errs = append(errs, &Error{Field: "workers", Msg: "must not be negative"})
	}
	if len(c.Roots) == 0 {
		errs = append(errs, &Error{Field: "roots", Msg: "at least one root path is required"})
	}
	for _, r := range c.Roots {
		if _, err := os.Stat(r); err != nil {
			errs = append(errs, &Error{Field: "roots", Msg: r, Err: err})
		}
	}
	if len(c.Plugins) == 0 {
		errs = append(errs, &Error{Field: "plugins", Msg: "no plugin enabled"})
	}
	return errors.Join(errs...)
}
