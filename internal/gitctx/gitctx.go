package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/dshills/codefox/internal/ignore"
)

// Modes reported in DiffResult.Mode.
const (
	ModeHead     = "head"
	ModeStaged   = "staged"
	ModeUnstaged = "unstaged"
	ModeCommit   = "commit"
	ModeRange    = "range"
)

// truncationMarker is appended to diffs cut at MaxDiffBytes.
const truncationMarker = "\n... (diff truncated at max_diff_bytes limit)\n"

// ErrNoCommits is returned by Head in a repository without commits.
var ErrNoCommits = errors.New("repository has no commits yet; stage your changes and use --staged")

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	// Dir is the directory git runs in. Empty means the process working
	// directory.
	Dir          string
	ContextLines int
	MaxDiffBytes int
	// Ignore drops whole file sections whose path it excludes.
	Ignore ignore.Spec
}

// DiffResult holds the collected diff and metadata.
type DiffResult struct {
	Diff      string
	Files     []string
	Mode      string
	Range     string
	Truncated bool
	Repo      RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string `json:"root"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Head returns the diff of the working tree and index against HEAD, which
// covers both staged and unstaged changes to tracked files.
func Head(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	if _, err := gitOutput(ctx, opts.Dir, "rev-parse", "--show-toplevel"); err != nil {
		return DiffResult{}, fmt.Errorf("not a git repository: %w", err)
	}
	if _, err := gitOutput(ctx, opts.Dir, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return DiffResult{}, ErrNoCommits
	}
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", "HEAD"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff HEAD: %w", err)
	}
	return buildResult(ctx, diff, ModeHead, "", opts)
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(ctx, diff, ModeUnstaged, "", opts)
}

// Staged returns the diff of index vs HEAD.
func Staged(ctx context.Context, opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", "--cached"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(ctx, diff, ModeStaged, "", opts)
}

// Commit returns the diff for a specific commit vs its parent.
func Commit(ctx context.Context, sha string, opts DiffOptions) (DiffResult, error) {
	args := buildDiffArgs(opts)
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", sha + "~1", sha}, args...)...)
	if err != nil {
		// Might be the initial commit.
		diff, err = gitOutput(ctx, opts.Dir, append([]string{"show", "--format=", sha}, args...)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return buildResult(ctx, diff, ModeCommit, sha, opts)
}

// Range returns the combined diff for a revision range. With mergeBase, an
// "a..b" range is compared from the merge base ("a...b").
func Range(ctx context.Context, revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	diff, err := gitOutput(ctx, opts.Dir, append([]string{"diff", diffRange}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(ctx, diff, ModeRange, revRange, opts)
}

func buildDiffArgs(opts DiffOptions) []string {
	var args []string
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return append(args, "--")
}

func buildResult(ctx context.Context, diff, mode, rangeStr string, opts DiffOptions) (DiffResult, error) {
	meta, err := GetRepoMeta(ctx, opts.Dir)
	if err != nil {
		meta = RepoMeta{}
	}

	// Filter ignored files before truncating so they don't consume the byte budget.
	diff = filterIgnored(diff, opts.Ignore)
	files := extractFiles(diff)

	truncated := false
	if opts.MaxDiffBytes > 0 && len(diff) > opts.MaxDiffBytes {
		diff = truncate(diff, opts.MaxDiffBytes) + truncationMarker
		truncated = true
	}

	return DiffResult{
		Diff:      diff,
		Files:     files,
		Mode:      mode,
		Range:     rangeStr,
		Truncated: truncated,
		Repo:      meta,
	}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func extractFiles(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			f := strings.TrimPrefix(line, "+++ b/")
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

func filterIgnored(diff string, spec ignore.Spec) string {
	if len(spec.Fragments()) == 0 {
		return diff
	}
	var kept []string
	for _, section := range splitDiffSections(diff) {
		path := extractPathFromSection(section)
		if path == "" || !spec.Excluded(path) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	if diff == "" {
		return nil
	}
	var sections []string
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	var current strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// extractPathFromSection returns the new path of a section, or the old path
// for deletions. Sections without ---/+++ lines (binary files, pure renames,
// mode changes) fall back to the rename target or the diff --git header.
func extractPathFromSection(section string) string {
	var old, renamed, header string
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			return strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, "--- a/"):
			old = strings.TrimPrefix(line, "--- a/")
		case strings.HasPrefix(line, "rename to "):
			renamed = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "diff --git a/") && header == "":
			if i := strings.LastIndex(line, " b/"); i >= 0 {
				header = line[i+3:]
			}
		}
	}
	switch {
	case old != "":
		return old
	case renamed != "":
		return renamed
	}
	return header
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
