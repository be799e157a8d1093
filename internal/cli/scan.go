package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codefox/internal/config"
	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/gitctx"
	"github.com/dshills/codefox/internal/ignore"
	"github.com/dshills/codefox/internal/output"
	"github.com/dshills/codefox/internal/providers"
	"github.com/dshills/codefox/internal/review"
)

// Scan flags
var (
	flagProvider       string
	flagModel          string
	flagMode           string
	flagFormat         string
	flagOut            string
	flagNoRedact       bool
	flagStaged         bool
	flagUnstaged       bool
	flagCommit         string
	flagRange          string
	flagMergeBase      bool
	flagContextLines   int
	flagMaxDiffBytes   int
	flagFailOnFindings bool
)

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
		if def := config.DefaultModel(flagProvider); flagModel == "" && def != "" {
			m["model.name"] = def
		}
	}
	if flagModel != "" {
		m["model.name"] = flagModel
	}
	if flagMode != "" {
		m["context.mode"] = flagMode
	}
	if flagMaxDiffBytes > 0 {
		m["review.max_diff_bytes"] = strconv.Itoa(flagMaxDiffBytes)
	}
	if flagNoRedact {
		m["privacy.redact_secrets"] = "false"
	}
	return m
}

// diffSource returns the function that collects the diff selected by the
// scan flags. Without any, the working tree and index are compared to HEAD.
func diffSource() (func(context.Context, gitctx.DiffOptions) (gitctx.DiffResult, error), error) {
	selected := 0
	for _, set := range []bool{flagStaged, flagUnstaged, flagCommit != "", flagRange != ""} {
		if set {
			selected++
		}
	}
	if selected > 1 {
		return nil, errors.New("--staged, --unstaged, --commit and --range are mutually exclusive")
	}
	switch {
	case flagStaged:
		return gitctx.Staged, nil
	case flagUnstaged:
		return gitctx.Unstaged, nil
	case flagCommit != "":
		sha := flagCommit
		return func(ctx context.Context, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Commit(ctx, sha, opts)
		}, nil
	case flagRange != "":
		rng, mergeBase := flagRange, flagMergeBase
		return func(ctx context.Context, opts gitctx.DiffOptions) (gitctx.DiffResult, error) {
			return gitctx.Range(ctx, rng, mergeBase, opts)
		}, nil
	}
	return gitctx.Head, nil
}

func buildDiffOpts(root string, cfg config.Config, spec ignore.Spec) gitctx.DiffOptions {
	return gitctx.DiffOptions{
		Dir:          root,
		ContextLines: flagContextLines,
		MaxDiffBytes: cfg.Review.MaxDiffBytes,
		Ignore:       spec,
	}
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Review the current changes",
	Long: `Review a git diff with the configured model, using the codebase as context.

By default the working tree and index are compared to HEAD. Use --staged,
--unstaged, --commit or --range to review something else.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := diffSource()
		if err != nil {
			return err
		}
		if _, err := output.GetWriter(flagFormat); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		root, err := repoRoot(ctx)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		cfg, err := loadConfig(root, buildOverrides())
		if err != nil {
			return err
		}
		runScan(ctx, cmd, root, cfg, source)
		return nil
	},
}

func runScan(ctx context.Context, cmd *cobra.Command, root string, cfg config.Config, source func(context.Context, gitctx.DiffOptions) (gitctx.DiffResult, error)) {
	prog := newProgress(cmd.ErrOrStderr(), !flagVerbose && isTerminal(os.Stderr))
	log := diag.NewConsole(prog, flagVerbose)
	if !cfg.Privacy.RedactSecrets {
		log.Warnf("secret redaction is disabled")
	}

	spec, err := ignore.Load(filepath.Join(root, cfg.Context.IgnoreFile))
	if err != nil {
		fail(cmd, err)
		return
	}

	gitStart := time.Now()
	diff, err := source(ctx, buildDiffOpts(root, cfg, spec))
	if err != nil {
		fail(cmd, err)
		return
	}
	gitDuration := time.Since(gitStart)
	if diff.Truncated {
		log.Warnf("diff exceeds %d bytes and was truncated", cfg.Review.MaxDiffBytes)
	}

	p, err := providers.New(ctx, cfg, providers.Deps{
		Logger:   log,
		Progress: prog.Upload,
	})
	if err != nil {
		fail(cmd, err)
		return
	}

	prog.Start(fmt.Sprintf("reviewing with %s/%s", p.Name(), p.Model()))
	report, err := review.Run(ctx, p, diff, review.Options{
		Root:          root,
		RedactSecrets: cfg.Privacy.RedactSecrets,
		RedactPaths:   cfg.Privacy.RedactPaths,
		Version:       version,
		GitDuration:   gitDuration,
		Logger:        log,
	})
	prog.Stop()
	if err != nil {
		fail(cmd, err)
		return
	}

	if err := output.WriteReport(report, flagFormat, flagOut, cmd.OutOrStdout()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if flagOut != "" {
		log.Infof("report written to %s", flagOut)
	}

	if flagFailOnFindings && report.Verdict == review.VerdictFindings {
		exitCode = ExitFindings
	}
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&flagProvider, "provider", "", "Model provider (gemini, qwen, ollama)")
	f.StringVar(&flagModel, "model", "", "Model name")
	f.StringVar(&flagMode, "mode", "", "Context mode (diff-only, remote-store, local-retrieval, full-inline)")
	f.StringVar(&flagFormat, "format", "text", "Output format (text, json, markdown)")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	f.BoolVar(&flagStaged, "staged", false, "Review staged changes (index vs HEAD)")
	f.BoolVar(&flagUnstaged, "unstaged", false, "Review unstaged changes (working tree vs index)")
	f.StringVar(&flagCommit, "commit", "", "Review a specific commit")
	f.StringVar(&flagRange, "range", "", "Review a revision range (e.g., origin/main..HEAD)")
	f.BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
	f.IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	f.IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	f.BoolVar(&flagFailOnFindings, "fail-on-findings", false, "Exit with code 1 when the review reports issues")
}
