package review

import (
	"strings"

	"github.com/dshills/codefox/internal/contextpack"
)

// Verdict summarizes a model answer.
type Verdict string

const (
	VerdictClean    Verdict = "clean"
	VerdictFindings Verdict = "findings"
	// VerdictSkipped means nothing was sent to the model.
	VerdictSkipped Verdict = "skipped"
)

var cleanAnswers = []string{"no issues found", "no behavioral change"}

// Classify returns VerdictClean when content opens with one of the no-issue
// replies the prompts ask for, and VerdictFindings otherwise.
func Classify(content string) Verdict {
	head := strings.ToLower(strings.TrimSpace(content))
	head = strings.TrimLeft(head, "#*> ")
	for _, a := range cleanAnswers {
		if strings.HasPrefix(head, a) {
			return VerdictClean
		}
	}
	return VerdictFindings
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode      string   `json:"mode"`
	Range     string   `json:"range,omitempty"`
	Files     []string `json:"files"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Timing contains performance metrics.
type Timing struct {
	GitMs     int64 `json:"gitMs"`
	ContextMs int64 `json:"contextMs"`
	LLMMs     int64 `json:"llmMs"`
	TotalMs   int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool       string            `json:"tool"`
	Version    string            `json:"version"`
	RunID      string            `json:"runId"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	Repo       RepoInfo          `json:"repo"`
	Inputs     InputInfo         `json:"inputs"`
	Context    contextpack.Stats `json:"context"`
	Verdict    Verdict           `json:"verdict"`
	Content    string            `json:"content"`
	TokensUsed int               `json:"tokensUsed"`
	Sources    []string          `json:"sources,omitempty"`
	Timing     Timing            `json:"timing"`
}
