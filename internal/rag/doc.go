// Package rag builds an in-memory vector index over source files and answers
// nearest-neighbour queries against it.
//
// Files are cut into fixed-size, non-overlapping chunks of Unicode code
// points. Every chunk of every file is embedded in a single [Embedder] call,
// and queries are ranked by cosine similarity with a stable sort so that ties
// keep insertion order. The index lives for one run only.
//
// Embedding failures degrade to an empty index; they are reported through a
// [diag.Logger] and never fail the run.
package rag
