// Package ignore resolves which paths codefox must never read, upload, or
// inline.
//
// Rules come from two places: the user's .codefoxignore file, where every
// non-blank, non-comment line is a path fragment, and a fixed set of directory
// names that are always skipped (.git, __pycache__, node_modules and the usual
// Python tool caches). A path is excluded when any fragment occurs in it as a
// plain, case-sensitive substring. There is no globbing and no anchoring, so a
// fragment "env" also excludes "environment/".
package ignore
