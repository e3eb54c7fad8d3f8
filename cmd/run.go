package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lakshaymaurya-felt/sweep/internal/browse"
	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/config"
	"github.com/lakshaymaurya-felt/sweep/internal/logging"
	"github.com/lakshaymaurya-felt/sweep/internal/metrics"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
	"github.com/lakshaymaurya-felt/sweep/internal/session"
	"github.com/lakshaymaurya-felt/sweep/internal/status"
)

// runSession is the pipeline shared by clean and purge: resolve config,
// scan with a progress screen, select, then delete what was confirmed.
// Without a terminal the candidates are listed and nothing is deleted.
func runSession(cmd *cobra.Command, args []string, def config.Config) error {
	cfg, err := config.Load(cmd.Flags(), args, def)
	if err != nil {
		return err
	}
	if debug {
		cfg.LogLevel = "debug"
		if cfg.LogFile == "" {
			cfg.LogFile = filepath.Join(os.TempDir(), "sweep.log")
		}
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
	})
	if err != nil {
		return &config.Error{Field: "log", Msg: "cannot create logger", Err: err}
	}
	defer func() { _ = logger.Sync() }()

	s, err := session.New(cfg, logger, metrics.New())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	if !stdoutIsTerminal() {
		_, scanErr := s.Scan(ctx)
		if errors.Is(scanErr, context.Canceled) {
			return scanErr
		}
		reportWarnings(errOut, s, scanErr, logger)
		browse.PrintStatic(out, s.Controller(time.Now()).Frame())
		return s.WriteMetrics()
	}

	scanErr := runScanScreen(ctx, s)
	if errors.Is(scanErr, context.Canceled) {
		fmt.Fprintln(out, "  Scan cancelled; nothing was deleted.")
		return s.WriteMetrics()
	}
	reportWarnings(errOut, s, scanErr, logger)

	if len(s.Results()) == 0 {
		fmt.Fprintln(out, "  No cleanup candidates found.")
		return s.WriteMetrics()
	}

	c, err := runSelection(s, logger)
	if err != nil {
		return err
	}
	if c.State() != selection.Confirmed {
		fmt.Fprintln(out, "  Cancelled; nothing was deleted.")
		return s.WriteMetrics()
	}

	rep, cleanErr := s.Execute(ctx, c)
	browse.PrintSummary(out, rep, cfg.DryRun)
	if cleanErr != nil {
		logger.Warn("cleanup finished with failures", zap.Error(cleanErr))
		cleanErr = fmt.Errorf("%d path(s) could not be deleted", rep.Count(clean.Failed))
	}
	return errors.Join(cleanErr, s.WriteMetrics())
}

// runScanScreen runs the scan under the progress screen. Quitting the
// screen cancels the scan.
func runScanScreen(ctx context.Context, s *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := s.Config()
	p := tea.NewProgram(status.New(status.Options{
		Roots:        cfg.Roots,
		Plugins:      cfg.Plugins,
		Progress:     s.Progress(),
		WarningCount: s.WarningCount,
		Cancel:       cancel,
	}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx)
		errc <- err
		p.Send(status.DoneMsg{Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-errc
		return fmt.Errorf("progress screen: %w", err)
	}
	scanErr := <-errc
	if m, ok := final.(status.Model); ok && m.Cancelled() {
		return context.Canceled
	}
	return scanErr
}

// runSelection shows the candidate list and returns the controller in its
// final state.
func runSelection(s *session.Session, logger *zap.Logger) (selection.Controller, error) {
	cfg := s.Config()
	model := browse.New(s.Controller(time.Now()), browse.Options{
		Roots:  cfg.Roots,
		DryRun: cfg.DryRun,
		Logger: logger,
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return selection.Controller{}, fmt.Errorf("selection screen: %w", err)
	}
	m := final.(browse.Model)
	logger.Debug("selection finished",
		zap.Stringer("state", m.Controller().State()),
		zap.Int("events", len(m.Events())),
	)
	return m.Controller(), nil
}

// reportWarnings prints a one-line summary of recoverable scan problems;
// the details go to the log.
func reportWarnings(w io.Writer, s *session.Session, scanErr error, logger *zap.Logger) {
	if scanErr != nil {
		logger.Warn("scan finished with plugin errors", zap.Error(scanErr))
		fmt.Fprintf(w, "  warning: %v\n", scanErr)
	}
	for _, werr := range s.Warnings() {
		logger.Debug("scan warning", zap.Error(werr))
	}
	if n := s.WarningCount(); n > 0 {
		fmt.Fprintf(w, "  %d path(s) could not be fully checked; run with --debug for details.\n", n)
	}
}

// stdoutIsTerminal decides between the interactive screens and the static
// listing. Tests replace it.
var stdoutIsTerminal = func() bool { return isTerminal(os.Stdout) }

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
