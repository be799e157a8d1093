package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/codefox/internal/review"
)

var (
	headingColor = color.New(color.Bold, color.FgCyan)
	cleanColor   = color.New(color.Bold, color.FgGreen)
	issueColor   = color.New(color.Bold, color.FgRed)
	dimColor     = color.New(color.Faint)
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.println(headingColor.Sprintf("CodeFox review: %s mode", report.Inputs.Mode))
	if report.Inputs.Range != "" {
		ew.printf("Range: %s\n", report.Inputs.Range)
	}
	ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	if report.Provider != "" {
		ew.printf("Model: %s/%s\n", report.Provider, report.Model)
	}
	ew.printf("Files changed: %d", len(report.Inputs.Files))
	if report.Inputs.Truncated {
		ew.printf(" (diff truncated)")
	}
	ew.println("")
	if report.Context.Mode != "" {
		ew.printf("Context: %s%s\n", report.Context.Mode, contextDetail(report))
	}
	ew.println(strings.Repeat("─", 60))

	switch report.Verdict {
	case review.VerdictSkipped:
		ew.println("\nNo changes to review.")
		return ew.err
	case review.VerdictClean:
		ew.println("\n" + cleanColor.Sprint("No issues found."))
	default:
		ew.println("\n" + issueColor.Sprint("Findings"))
	}

	ew.println("")
	ew.println(report.Content)

	if len(report.Sources) > 0 {
		ew.println("\n" + headingColor.Sprint("Context sources"))
		for _, s := range report.Sources {
			ew.printf("  %s\n", s)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.println(dimColor.Sprintf("Completed in %dms (git: %dms, context: %dms, LLM: %dms), %d tokens",
		report.Timing.TotalMs, report.Timing.GitMs, report.Timing.ContextMs, report.Timing.LLMMs, report.TokensUsed))

	return ew.err
}

func contextDetail(report *review.Report) string {
	c := report.Context
	var parts []string
	if c.Collected > 0 {
		parts = append(parts, fmt.Sprintf("%d files", c.Collected))
	}
	if c.Chunks > 0 {
		parts = append(parts, fmt.Sprintf("%d chunks", c.Chunks))
	}
	if c.Uploaded > 0 {
		parts = append(parts, fmt.Sprintf("%d uploaded", c.Uploaded))
	}
	if c.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", c.Failed))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
