// CodeFox is a CLI for reviewing git diffs with an LLM, using the rest of the
// codebase as context.
//
// Depending on the provider, context is uploaded to the model's file store,
// retrieved locally by embedding similarity, or inlined in full.
//
// Usage:
//
//	codefox init                      # write .codefox.yml, .codefoxenv, .codefoxignore
//	codefox scan                      # review working tree and index vs HEAD
//	codefox scan --staged             # review staged changes
//	codefox scan --range main..HEAD   # review a revision range
//	codefox models list               # list the provider's models
//	codefox models doctor             # check credentials and model
//	codefox hook install              # run codefox from a pre-commit hook
package main
