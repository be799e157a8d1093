package output

import (
	"io"

	"github.com/dshills/codefox/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.printf("## CodeFox Code Review\n\n")

	ew.printf("| | |\n")
	ew.printf("|---|---|\n")
	ew.printf("| Mode | %s |\n", report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("| Range | `%s` |\n", report.Inputs.Range)
	}
	if report.Provider != "" {
		ew.printf("| Model | %s/%s |\n", report.Provider, report.Model)
	}
	ew.printf("| Files changed | %d |\n", len(report.Inputs.Files))
	if report.Context.Mode != "" {
		ew.printf("| Context | %s |\n", report.Context.Mode)
	}
	ew.printf("\n")
	if report.Inputs.Truncated {
		ew.printf("> The diff exceeded `review.max_diff_bytes` and was truncated.\n\n")
	}

	switch report.Verdict {
	case review.VerdictSkipped:
		ew.println("No changes to review.")
		return ew.err
	case review.VerdictClean:
		ew.printf("%s :white_check_mark:\n\n", report.Content)
	default:
		ew.printf("%s\n\n", report.Content)
	}

	if len(report.Sources) > 0 {
		ew.printf("<details>\n<summary>Context sources (%d)</summary>\n\n", len(report.Sources))
		for _, s := range report.Sources {
			ew.printf("- `%s`\n", s)
		}
		ew.printf("\n</details>\n\n")
	}

	ew.printf("*Reviewed in %dms (git: %dms, context: %dms, LLM: %dms)*\n",
		report.Timing.TotalMs, report.Timing.GitMs, report.Timing.ContextMs, report.Timing.LLMMs)

	return ew.err
}
