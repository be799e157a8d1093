// Package upload pushes files into a provider-hosted context store and waits
// for the store to finish processing them.
//
// A [Coordinator] submits files through a bounded worker pool, then polls
// every outstanding operation on a fixed interval until all of them are done
// or a wall-clock budget runs out. A file that fails to upload is recorded in
// [Result.Failures] and never affects its siblings. Running out of time is a
// batch-level condition reported as [ErrBatchTimeout]; operations that had
// already completed are kept in the result.
package upload
