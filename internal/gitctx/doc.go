// Package gitctx extracts diffs and repository metadata by shelling out to
// git.
//
// The default review input is [Head], the working tree and index against
// HEAD. [Staged], [Unstaged], [Commit] and [Range] select other inputs.
// File sections excluded by the ignore spec are dropped before the diff is
// truncated to DiffOptions.MaxDiffBytes.
package gitctx
