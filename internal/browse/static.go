package browse

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lakshaymaurya-felt/sweep/internal/clean"
	"github.com/lakshaymaurya-felt/sweep/internal/core"
	"github.com/lakshaymaurya-felt/sweep/internal/selection"
)

// PrintStatic prints the candidate list as plain text grouped by plugin.
// Used when stdout is not a terminal; nothing is selected or deleted in
// that mode. ASCII connectors keep it readable in any console.
func PrintStatic(w io.Writer, f selection.Frame) {
	if len(f.Rows) == 0 {
		fmt.Fprintln(w, "  No cleanup candidates found.")
		return
	}

	groups := make(map[string][]selection.Row)
	var names []string
	for _, r := range f.Rows {
		if _, ok := groups[r.Plugin]; !ok {
			names = append(names, r.Plugin)
		}
		groups[r.Plugin] = append(groups[r.Plugin], r)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "  Cleanup candidates: %d\n", len(f.Rows))
	fmt.Fprintln(w, "  "+strings.Repeat("-", 58))

	for _, name := range names {
		rows := groups[name]
		fmt.Fprintf(w, "  %s/\n", name)
		for i, r := range rows {
			connector := "+-- "
			if i == len(rows)-1 {
				connector = "\\-- "
			}
			fmt.Fprintf(w, "  %s%-8s %10s %4s  %s", connector, r.Risk, r.Size, r.Age, r.Path)
			if r.Reason != "" {
				fmt.Fprintf(w, "  (%s)", r.Reason)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "  "+strings.Repeat("-", 58))
	fmt.Fprintln(w, "  Run in an interactive terminal to select and delete.")
}

// PrintSummary prints the outcome of a cleanup run.
func PrintSummary(w io.Writer, rep clean.Report, dryRun bool) {
	if len(rep.Results) == 0 {
		fmt.Fprintln(w, "  Nothing was cleaned.")
		return
	}

	for _, res := range rep.Results {
		switch res.Outcome {
		case clean.Skipped:
			fmt.Fprintf(w, "  skipped  %s  (%s)\n", res.Path, res.Reason)
		case clean.Failed:
			fmt.Fprintf(w, "  failed   %s  (%v)\n", res.Path, res.Err)
		}
	}

	verb := "Freed"
	done := rep.Count(clean.Deleted)
	if dryRun {
		verb = "Would free"
		done = rep.Count(clean.WouldDelete)
	}
	fmt.Fprintf(w, "  %s %s across %d item(s); %d skipped, %d failed.\n",
		verb, core.FormatSize(rep.BytesFreed), done,
		rep.Count(clean.Skipped), rep.Count(clean.Failed))
}
