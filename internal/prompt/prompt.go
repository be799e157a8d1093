package prompt

import (
	"fmt"
	"strings"
)

// Policy holds the review settings that shape the system prompt.
type Policy struct {
	// System replaces every built-in section when non-empty.
	System string
	// Extra is appended after everything else.
	Extra string

	Security    bool
	Performance bool
	Style       bool

	DiffOnly     bool
	Baseline     bool
	Severity     string
	MaxIssues    int
	SuggestFixes bool
}

// System builds the system prompt for p.
func System(p Policy) string {
	var parts []string
	if p.System != "" {
		parts = append(parts, p.System)
	} else {
		parts = append(parts, sectionRole, sectionProtocol)
		if p.Security {
			parts = append(parts, sectionSecurity)
		}
		if p.Performance {
			parts = append(parts, sectionImpact)
		}
		if p.Style {
			parts = append(parts, sectionSignal)
		}
		parts = append(parts, sectionEvidence)
		if p.DiffOnly {
			parts = append(parts, sectionDiffAware)
		}
		parts = append(parts,
			sectionSeverity,
			sectionNoFakeStats,
			sectionContextPolicy,
			sectionFormatting,
			sectionResponse,
			sectionNoIssues,
		)
	}
	if p.Baseline {
		parts = append(parts, sectionBaseline)
	}

	maxIssues := "unlimited"
	if p.MaxIssues > 0 {
		maxIssues = fmt.Sprint(p.MaxIssues)
	}
	parts = append(parts, fmt.Sprintf(
		"-------- REVIEW POLICY --------\nMinimum severity: %s\nMax findings: %s\nSuggest fixes: %t\nDiff-only mode: %t",
		orDefault(p.Severity, "any"), maxIssues, p.SuggestFixes, p.DiffOnly))
	if p.Severity != "" {
		parts = append(parts, "Report only issues with severity >= "+strings.ToUpper(p.Severity))
	}
	if p.MaxIssues > 0 {
		parts = append(parts, fmt.Sprintf("Limit the output to the %d most critical findings.", p.MaxIssues))
	}
	if p.Extra != "" {
		parts = append(parts, p.Extra)
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, "\n\n")
}

// Style selects the user-message template a provider uses.
type Style int

const (
	// StyleAnalyze asks for a risk analysis of the diff and attaches context
	// as a separate block.
	StyleAnalyze Style = iota
	// StyleDiffAudit embeds diff and context in one structured audit request.
	StyleDiffAudit
)

// User builds the user message. For StyleAnalyze the context is returned as
// a second part so providers that accept multi-part messages can keep it
// apart from the instruction.
func User(style Style, diff, context string) []string {
	switch style {
	case StyleDiffAudit:
		return []string{diffAudit(diff, context)}
	default:
		parts := []string{"Analyze the following git diff and identify potential risks:\n\n" + diff}
		if strings.TrimSpace(context) != "" {
			parts = append(parts, context)
		}
		return parts
	}
}

func diffAudit(diff, context string) string {
	var b strings.Builder
	b.WriteString(`You are performing a DIFF AUDIT.
Detect behavior changes caused by the modified lines. Do not explain the
codebase, describe the architecture or summarize classes. An answer that does
not compare OLD and NEW behavior is invalid.

-------- DIFF --------
Git diff with +/- markers. Only these lines changed.
`)
	b.WriteString(diff)
	b.WriteString("\n\n-------- RELEVANT CONTEXT --------\n")
	b.WriteString("Use only to trace data flow for symbols referenced in the diff. Do not review it on its own.\n\n")
	if strings.TrimSpace(context) == "" {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(context)
		b.WriteString("\n")
	}
	b.WriteString(`
-------- REQUIRED REASONING --------
1. List the changed lines.
2. For each change give the OLD behavior and the NEW behavior.
3. Name the execution path that now behaves differently.
4. State what can break.
If nothing changes behavior, answer exactly: NO BEHAVIORAL CHANGE.
`)
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
