package prompt

import (
	"strings"
	"testing"
)

func fullPolicy() Policy {
	return Policy{
		Security:     true,
		Performance:  true,
		Style:        true,
		DiffOnly:     true,
		Severity:     "high",
		MaxIssues:    5,
		SuggestFixes: true,
	}
}

func TestSystem_AllSections(t *testing.T) {
	got := System(fullPolicy())
	for _, want := range []string{
		"[ROLE]", "ANALYSIS PROTOCOL", "CORE PRIORITIES", "REGRESSION AND IMPACT",
		"SIGNAL OVER NOISE", "EVIDENCE", "DIFF AWARENESS", "SEVERITY",
		"RESPONSE STRUCTURE", "REVIEW POLICY",
		"Minimum severity: high", "Max findings: 5",
		"Report only issues with severity >= HIGH",
		"Limit the output to the 5 most critical findings.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(got, "BASELINE MODE") {
		t.Error("baseline section should be off")
	}
}

func TestSystem_RulerToggles(t *testing.T) {
	p := fullPolicy()
	p.Security = false
	p.Performance = false
	p.Style = false
	p.DiffOnly = false
	got := System(p)
	for _, absent := range []string{"CORE PRIORITIES", "REGRESSION AND IMPACT", "SIGNAL OVER NOISE", "DIFF AWARENESS"} {
		if strings.Contains(got, absent) {
			t.Errorf("section %q should be disabled", absent)
		}
	}
	if !strings.Contains(got, "Diff-only mode: false") {
		t.Error("policy block should report diff-only off")
	}
}

func TestSystem_CustomReplacesBuiltins(t *testing.T) {
	p := Policy{System: "  You review Go code.  ", Extra: "Prefer table tests.", Baseline: true}
	got := System(p)
	if !strings.HasPrefix(got, "You review Go code.") {
		t.Errorf("custom system prompt should lead, got %q", got[:40])
	}
	if strings.Contains(got, "[ROLE]") {
		t.Error("built-in role should be replaced")
	}
	if !strings.Contains(got, "BASELINE MODE") {
		t.Error("baseline applies to custom prompts too")
	}
	if !strings.HasSuffix(got, "Prefer table tests.") {
		t.Error("extra should come last")
	}
	if !strings.Contains(got, "Max findings: unlimited") {
		t.Error("zero max issues should read as unlimited")
	}
	if strings.Contains(got, "Report only issues") {
		t.Error("no severity line without a severity")
	}
}

func TestUser_Analyze(t *testing.T) {
	parts := User(StyleAnalyze, "+x", "<file path='a.go'>\nx\n</file>")
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0] != "Analyze the following git diff and identify potential risks:\n\n+x" {
		t.Errorf("parts[0] = %q", parts[0])
	}

	if got := User(StyleAnalyze, "+x", "  "); len(got) != 1 {
		t.Errorf("blank context should be omitted, got %d parts", len(got))
	}
}

func TestUser_DiffAudit(t *testing.T) {
	parts := User(StyleDiffAudit, "-old\n+new", "")
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	msg := parts[0]
	if !strings.Contains(msg, "-old\n+new") || !strings.Contains(msg, "(none)") {
		t.Errorf("unexpected audit message:\n%s", msg)
	}
	if !strings.Contains(msg, "NO BEHAVIORAL CHANGE") {
		t.Error("missing no-change instruction")
	}
}
