// Package observability renders assessment event streams for the terminal.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/fit-agent/internal/events"
	"github.com/jonathan/fit-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes events as they arrive. Thoughts and phase summaries are
// shown only in verbose mode.
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintEvent writes one event. It is shaped to be passed to Channel.Drain.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintEvent(ev events.Event) error {
	switch payload := ev.Payload.(type) {
	case events.PhaseStart:
		fmt.Fprintf(p.out, "▶ %s\n", payload.Message)
	case events.PhaseComplete:
		if p.verbose && payload.Summary != "" {
			fmt.Fprintf(p.out, "  ✓ %s: %s\n", payload.Phase, payload.Summary)
		}
	case events.Thought:
		if p.verbose {
			fmt.Fprintf(p.out, "  [%d %s] %s\n", payload.Step, payload.Kind, payload.Content)
		}
	case events.Response:
		fmt.Fprintf(p.out, "\n%s\n\n", strings.TrimSpace(payload.Text))
	case events.Complete:
		p.PrintCompletion(payload)
	case events.Error:
		p.PrintError(payload)
	}
	return nil
}

// PrintCompletion outputs the status line, warnings and the assessment box.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCompletion(c events.Complete) {
	fmt.Fprintf(p.out, "Status: %s (%.1fs, request %s)\n", c.Status, float64(c.DurationMS)/1000, c.RequestID)
	for _, w := range c.Warnings {
		fmt.Fprintf(p.out, "⚠ %s\n", w)
	}
	p.PrintAssessment(c.Assessment)
}

// PrintError outputs a fatal stream error.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintError(e events.Error) {
	if e.Phase != "" {
		fmt.Fprintf(p.out, "✗ %s failed (%s): %s\n", e.Phase, e.Code, e.Message)
		return
	}
	fmt.Fprintf(p.out, "✗ %s: %s\n", e.Code, e.Message)
}

// PrintAssessment outputs a human-readable summary of the final assessment.
func (p *Printer) PrintAssessment(a *types.Assessment) {
	if a == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Subject:    %s (%s)\n", a.Subject, a.QueryType))
	if a.QualityTier != "" {
		sb.WriteString(fmt.Sprintf("Score:      %.1f (raw %.1f)\n", a.CalibratedScore, a.RawScore))
		sb.WriteString(fmt.Sprintf("Evidence:   %s\n", a.QualityTier))
	}
	sb.WriteString(fmt.Sprintf("Confidence: %s\n", a.ConfidenceTier))

	writeList(&sb, "Strengths", a.Strengths)

	if len(a.Gaps) > 0 {
		gaps := make([]string, len(a.Gaps))
		for i, g := range a.Gaps {
			gaps[i] = fmt.Sprintf("%s [%s]", g.Requirement, g.Severity)
		}
		writeList(&sb, "Gaps", gaps)
	}
	writeList(&sb, "Flags", a.Flags)

	if len(a.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("\nSources: %d\n", len(a.Sources)))
	}

	p.printBox("FIT ASSESSMENT", strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
