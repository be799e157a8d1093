// Package contextpack decides what repository context accompanies a diff and
// packages it for a provider.
//
// An [Assembler] runs in one of four modes:
//   - diff-only: nothing is collected, the payload is empty
//   - remote-store: files are uploaded into the provider's store and the
//     payload references the store handle
//   - local-retrieval: files are chunked and embedded, and the chunks closest
//     to the diff are inlined
//   - full-inline: whole files are inlined
//
// Inlined content is wrapped per file, truncated to a per-file character cap,
// and bounded overall. Paths matched by the ignore spec never reach a payload.
package contextpack
