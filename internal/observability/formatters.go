// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/term-sync/internal/browser"
	"github.com/jonathan/term-sync/internal/catalog"
	"github.com/jonathan/term-sync/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPrefixReport outputs the result of one prefix.
func (p *Printer) PrintPrefixReport(r *types.PrefixReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Outcome:        %s\n", r.Outcome))
	sb.WriteString(fmt.Sprintf("Codes:          %d\n", len(r.Codes)))
	sb.WriteString(fmt.Sprintf("Updated:        %d\n", r.Tally.Updated))
	sb.WriteString(fmt.Sprintf("Already synced: %d\n", r.Tally.AlreadySynced))
	sb.WriteString(fmt.Sprintf("Anomalies:      %d\n", r.Tally.Anomalies))
	if r.Tally.Failed > 0 {
		sb.WriteString(fmt.Sprintf("Failed:         %d\n", r.Tally.Failed))
	}
	if len(r.Tally.AnomalyCodes) > 0 {
		sb.WriteString("\nUnmatched codes:\n")
		writeList(&sb, r.Tally.AnomalyCodes)
	}
	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError: %s\n", r.Error))
	}
	sb.WriteString(fmt.Sprintf("Took:           %s\n", r.Duration.Round(time.Millisecond)))

	p.printBox(fmt.Sprintf("PREFIX %s", r.Prefix), sb.String())
}

// PrintRunSummary outputs the totals of a run and the prefixes that need attention.
func (p *Printer) PrintRunSummary(s *types.RunSummary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	status := "completed"
	switch {
	case s.Aborted:
		status = "aborted"
	case s.Cancelled:
		status = "cancelled"
	}
	sb.WriteString(fmt.Sprintf("Term:       %s\n", s.TermTag))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", status))
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Prefixes:   %d\n", len(s.Prefixes)))
	sb.WriteString(fmt.Sprintf("  with results: %d\n", s.CountOutcome(types.OutcomeResults)+s.CountOutcome(types.OutcomePaginated)))
	sb.WriteString(fmt.Sprintf("  no results:   %d\n", s.CountOutcome(types.OutcomeNoResults)))
	sb.WriteString(fmt.Sprintf("  failed:       %d\n", s.CountOutcome(types.OutcomeFailed)))
	sb.WriteString(fmt.Sprintf("  skipped:      %d\n", s.CountOutcome(types.OutcomeSkipped)))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Updated:        %d\n", s.Totals.Updated))
	sb.WriteString(fmt.Sprintf("Already synced: %d\n", s.Totals.AlreadySynced))
	sb.WriteString(fmt.Sprintf("Anomalies:      %d\n", s.Totals.Anomalies))
	sb.WriteString(fmt.Sprintf("Failed:         %d\n", s.Totals.Failed))

	var failed []string
	for _, r := range s.Prefixes {
		if r.Outcome == types.OutcomeFailed {
			failed = append(failed, r.Prefix)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailed prefixes:\n")
		writeList(&sb, failed)
	}
	if s.LastPrefix != "" && (s.Aborted || s.Cancelled) {
		sb.WriteString(fmt.Sprintf("\nResume with: --resume-after %s\n", s.LastPrefix))
	}

	p.printBox("TERM SYNC SUMMARY", sb.String())
}

// PrintDepartments outputs departments with their prefixes, followed by the processing
// order a run would use.
func (p *Printer) PrintDepartments(depts []types.Department) {
	var sb strings.Builder
	for _, d := range depts {
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("#%d", d.ID)
		}
		prefixes := "(none)"
		if len(d.Prefixes) > 0 {
			prefixes = strings.Join(d.Prefixes, ", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", name, prefixes))
	}
	order := catalog.Prefixes(depts)
	sb.WriteString(fmt.Sprintf("\nProcessing order (%d): %s\n", len(order), strings.Join(order, " ")))

	p.printBox("DEPARTMENT PREFIXES", sb.String())
}

// PrintControls outputs every control of a site profile with its locators in the order
// they are tried.
func (p *Printer) PrintControls(name string, controls []browser.Control) {
	var sb strings.Builder
	for i, c := range controls {
		if i > 0 {
			sb.WriteString("\n")
		}
		tier := "optional"
		if c.Essential {
			tier = "essential"
		}
		sb.WriteString(fmt.Sprintf("%s (%s)\n", c.Name, tier))
		for j, loc := range c.Locators {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", j+1, loc))
		}
	}
	p.printBox(fmt.Sprintf("CONTROLS: %s", name), sb.String())
}

func writeList(sb *strings.Builder, items []string) {
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}
