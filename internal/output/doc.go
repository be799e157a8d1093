// Package output formats review reports for display or machine consumption.
//
// Three formats are supported:
//   - text: terminal output with coloured headings (default)
//   - json: the full structured report
//   - markdown: PR-comment-friendly, with the context sources collapsed
//
// Use [GetWriter] to obtain a [Writer] for a given format string, or
// [WriteReport] to write to a file or standard output.
package output
