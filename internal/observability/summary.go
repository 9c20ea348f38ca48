package observability

import (
	"fmt"
	"io"
	"strings"
)

const boxWidth = 60

// Printer handles formatted box output for run summaries.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer that writes to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// RunSummary is the operator-facing outcome of one ingest or backfill run.
type RunSummary struct {
	RunID         string
	Processed     int64
	Updated       int64
	Skipped       int64
	Failed        int64
	FallbackCalls int64
}

// PrintRunSummary outputs the end-of-run item counts and fallback usage.
func (p *Printer) PrintRunSummary(s *RunSummary) {
	if s == nil {
		return
	}
	var sb strings.Builder
	if s.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run:        %s\n", s.RunID))
	}
	sb.WriteString(fmt.Sprintf("Processed:  %d\n", s.Processed))
	sb.WriteString(fmt.Sprintf("Updated:    %d\n", s.Updated))
	sb.WriteString(fmt.Sprintf("Skipped:    %d\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", s.Failed))
	sb.WriteString(fmt.Sprintf("AI fallback calls: %d", s.FallbackCalls))
	p.printBox("RUN SUMMARY", sb.String())
}

// PrintHealthCheck outputs the startup health block: classifier
// configuration, throttle settings, and the persistence target.
func (p *Printer) PrintHealthCheck(classifierConfigured bool, rpm int, intervalSeconds float64, dbTarget string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Classifier configured: %t\n", classifierConfigured))
	if classifierConfigured {
		sb.WriteString(fmt.Sprintf("RPM limit: %d req/min | interval: %.4fs\n", rpm, intervalSeconds))
	}
	sb.WriteString(fmt.Sprintf("DB target: %s", dbTarget))
	p.printBox("STARTUP HEALTH CHECK", sb.String())
}
