// Package collect walks a repository and returns the source files eligible
// for review context.
//
// [Collect] only lists paths; reading is left to [Read] so that a file that
// cannot be opened is skipped on its own without aborting the walk.
package collect
