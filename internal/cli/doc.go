// Package cli wires together the Cobra command tree for the codefox binary.
//
// It defines the root command and all subcommands (scan, init, config,
// models, hook, version), binds flags, reads configuration, runs the review
// session and returns deterministic exit codes for CI gating.
package cli
