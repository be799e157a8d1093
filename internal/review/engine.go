package review

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/gitctx"
	"github.com/dshills/codefox/internal/providers"
	"github.com/dshills/codefox/internal/redact"
)

// Tool is the name reported in every Report.
const Tool = "codefox"

// Options configures a review run.
type Options struct {
	// Root is the repository directory indexed for context. Empty means the
	// repository root recorded in the diff.
	Root          string
	RedactSecrets bool
	RedactPaths   []string
	Version       string
	// GitDuration is how long collecting the diff took.
	GitDuration time.Duration
	Logger      diag.Logger
}

// Run executes a review of diff with p.
func Run(ctx context.Context, p providers.Provider, diff gitctx.DiffResult, opts Options) (*Report, error) {
	startTime := time.Now()
	log := diag.OrNop(opts.Logger)

	// Redact secrets from diff before sending to provider
	redactedDiff := diff.Diff
	if opts.RedactSecrets {
		redactedDiff = redact.Diff(redactedDiff, opts.RedactPaths)
	}

	report := newReport(p, diff, opts)
	if strings.TrimSpace(redactedDiff) == "" {
		log.Infof("no changes to review")
		report.Verdict = VerdictSkipped
		report.Timing.TotalMs = opts.GitDuration.Milliseconds() + time.Since(startTime).Milliseconds()
		return report, nil
	}

	if err := p.CheckConnection(ctx); err != nil {
		return nil, fmt.Errorf("checking %s connection: %w", p.Name(), err)
	}

	root := opts.Root
	if root == "" {
		root = diff.Repo.Root
	}
	// Context is removed even when preparing it fails part way.
	defer p.RemoveContext(context.WithoutCancel(ctx))

	ctxStart := time.Now()
	stats, err := p.UploadContext(ctx, root)
	report.Context = stats
	if err != nil {
		return nil, fmt.Errorf("preparing context: %w", err)
	}
	report.Timing.ContextMs = time.Since(ctxStart).Milliseconds()

	llmStart := time.Now()
	resp, err := p.Execute(ctx, redactedDiff)
	if err != nil {
		return nil, fmt.Errorf("provider review: %w", err)
	}
	report.Timing.LLMMs = time.Since(llmStart).Milliseconds()

	report.Content = strings.TrimSpace(resp.Content)
	report.TokensUsed = resp.TokensUsed
	report.Sources = resp.Sources
	report.Verdict = Classify(report.Content)
	report.Timing.TotalMs = opts.GitDuration.Milliseconds() + time.Since(startTime).Milliseconds()
	return report, nil
}

func newReport(p providers.Provider, diff gitctx.DiffResult, opts Options) *Report {
	files := diff.Files
	if files == nil {
		files = []string{}
	}
	return &Report{
		Tool:     Tool,
		Version:  opts.Version,
		RunID:    generateRunID(),
		Provider: p.Name(),
		Model:    p.Model(),
		Repo: RepoInfo{
			Root:   diff.Repo.Root,
			Head:   diff.Repo.Head,
			Branch: diff.Repo.Branch,
		},
		Inputs: InputInfo{
			Mode:      diff.Mode,
			Range:     diff.Range,
			Files:     files,
			Truncated: diff.Truncated,
		},
		Timing: Timing{GitMs: opts.GitDuration.Milliseconds()},
	}
}

func generateRunID() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return fmt.Sprintf("%x", h[:16])
}
