package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codefox/internal/diag"
)

// ErrBatchTimeout is returned when the processing budget runs out before
// every submitted operation is done.
var ErrBatchTimeout = errors.New("upload batch timed out")

const (
	DefaultWorkers      = 10
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 600 * time.Second
	DefaultMIMEType     = "text/plain"
)

// Phase names the stage a Progress report belongs to.
type Phase string

const (
	PhaseUploading  Phase = "uploading"
	PhaseProcessing Phase = "processing"
)

// Progress is reported after each submission and on every poll tick.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// ProgressFunc receives progress reports. Calls are serialized.
type ProgressFunc func(Progress)

// FileError records a file that could not be uploaded or processed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Result is the outcome of a batch, ordered by the input paths.
type Result struct {
	// Operations holds every operation that finished successfully.
	Operations []Operation
	// Pending holds operations still processing when the batch timed out.
	Pending []Operation
	// Unsent holds paths never submitted because the batch ended first.
	Unsent   []string
	Failures []FileError
}

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Timeout      time.Duration
	// MIMEType picks the content type sent for a path.
	MIMEType func(path string) string
	// Open returns the content uploaded for a path. The default reads the
	// file from disk.
	Open     func(path string) (io.ReadCloser, error)
	Progress ProgressFunc
	Logger   diag.Logger
}

// Coordinator runs upload batches against a Store.
type Coordinator struct {
	store Store
	opts  Options
	log   diag.Logger
}

// NewCoordinator returns a Coordinator for store.
func NewCoordinator(store Store, opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MIMEType == nil {
		opts.MIMEType = func(string) string { return DefaultMIMEType }
	}
	if opts.Open == nil {
		opts.Open = func(p string) (io.ReadCloser, error) { return os.Open(p) }
	}
	return &Coordinator{store: store, opts: opts, log: diag.OrNop(opts.Logger)}
}

// Upload submits paths into h and waits until every resulting operation is
// done. The budget set by Options.Timeout covers submission and processing.
//
// The returned error is nil when all operations completed, wraps
// ErrBatchTimeout when time ran out, or is the context error when ctx ended
// first. Per-file problems only appear in Result.Failures. Files the batch
// never got to send are listed in Result.Unsent and always come with a
// non-nil error.
func (c *Coordinator) Upload(ctx context.Context, h Handle, paths []string) (Result, error) {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return Result{}, nil
	}

	deadline := time.Now().Add(c.opts.Timeout)
	b := &batch{
		ops:      make(map[string]Operation, len(paths)),
		failures: make(map[string]error),
		unsent:   make(map[string]bool),
		total:    len(paths),
		progress: c.opts.Progress,
	}

	c.submit(ctx, h, paths, deadline, b)
	err := c.wait(ctx, paths, deadline, b)
	return b.result(paths), err
}

func (c *Coordinator) submit(ctx context.Context, h Handle, paths []string, deadline time.Time, b *batch) {
	subCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for _, p := range paths {
		g.Go(func() error {
			if subCtx.Err() != nil {
				b.skipped(p)
				return nil
			}
			op, err := c.store.Upload(subCtx, h, File{Path: p, Open: func() (io.ReadCloser, error) {
				return c.opts.Open(p)
			}}, c.opts.MIMEType(p))
			if err != nil && subCtx.Err() != nil {
				// Cut off by the batch budget, not a problem with the file.
				b.skipped(p)
				return nil
			}
			if err != nil {
				c.log.Warnf("upload of %s failed: %v", p, err)
			} else if op.Path == "" {
				op.Path = p
			}
			b.submitted(p, op, err)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) wait(ctx context.Context, paths []string, deadline time.Time, b *batch) error {
	// Individual polls may run at most one interval past the deadline.
	pollCtx, cancel := context.WithDeadline(ctx, deadline.Add(c.opts.PollInterval))
	defer cancel()

	for {
		for _, p := range paths {
			op, ok := b.pending(p)
			if !ok {
				continue
			}
			if pollCtx.Err() != nil {
				break
			}
			next, err := c.store.Poll(pollCtx, op)
			if err != nil {
				c.log.Warnf("checking status of %s: %v", p, err)
				continue
			}
			if next.Path == "" {
				next.Path = p
			}
			if next.Done && next.Err != nil {
				c.log.Warnf("processing of %s failed: %v", p, next.Err)
			}
			b.update(p, next)
		}

		done, total := b.counts()
		b.report(Progress{Phase: PhaseProcessing, Done: done, Total: total})
		// total includes unsent files.
		if done == total {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s: %d of %d files processed",
				ErrBatchTimeout, c.opts.Timeout, done, total)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(c.opts.PollInterval, remaining)):
		}
	}
}

// batch accumulates per-path state. It is keyed by path so completion order
// never matters.
type batch struct {
	mu        sync.Mutex
	ops       map[string]Operation
	failures  map[string]error
	unsent    map[string]bool
	total     int
	submitCnt int
	progress  ProgressFunc
}

func (b *batch) submitted(p string, op Operation, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures[p] = err
	} else {
		b.ops[p] = op
	}
	b.submitCnt++
	if b.progress != nil {
		b.progress(Progress{Phase: PhaseUploading, Done: b.submitCnt, Total: b.total})
	}
}

func (b *batch) skipped(p string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsent[p] = true
}

func (b *batch) pending(p string) (Operation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, ok := b.ops[p]
	if !ok || op.Done {
		return Operation{}, false
	}
	return op, true
}

func (b *batch) update(p string, op Operation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops[p] = op
}

func (b *batch) counts() (done, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, op := range b.ops {
		if op.Done {
			done++
		}
	}
	return done, len(b.ops) + len(b.unsent)
}

func (b *batch) report(p Progress) {
	if b.progress == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress(p)
}

func (b *batch) result(paths []string) Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	var r Result
	for _, p := range paths {
		if b.unsent[p] {
			r.Unsent = append(r.Unsent, p)
			continue
		}
		if err, ok := b.failures[p]; ok {
			r.Failures = append(r.Failures, FileError{Path: p, Err: err})
			continue
		}
		op, ok := b.ops[p]
		if !ok {
			continue
		}
		switch {
		case !op.Done:
			r.Pending = append(r.Pending, op)
		case op.Err != nil:
			r.Failures = append(r.Failures, FileError{Path: p, Err: op.Err})
		default:
			r.Operations = append(r.Operations, op)
		}
	}
	return r
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
