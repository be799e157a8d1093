// Package diag carries user-facing diagnostics (warnings about skipped files,
// degraded retrieval, cleanup failures) from the core packages to stderr.
//
// Core packages accept a [Logger] through their options and never write to the
// terminal directly. The CLI installs a [Console]; tests use [Nop] or a
// [Recorder].
package diag
