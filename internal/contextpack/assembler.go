package contextpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/codefox/internal/collect"
	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/ignore"
	"github.com/dshills/codefox/internal/rag"
	"github.com/dshills/codefox/internal/redact"
	"github.com/dshills/codefox/internal/upload"
)

// Mode selects how context is supplied.
type Mode string

const (
	ModeDiffOnly       Mode = "diff-only"
	ModeRemoteStore    Mode = "remote-store"
	ModeLocalRetrieval Mode = "local-retrieval"
	ModeFullInline     Mode = "full-inline"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeDiffOnly, ModeRemoteStore, ModeLocalRetrieval, ModeFullInline}

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown context mode %q (want one of %s)", s, joinModes())
}

func joinModes() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

const (
	DefaultTopK            = 5
	DefaultInlineCharCap   = 12000
	DefaultMaxContextChars = 200000
)

// Options configures an Assembler.
type Options struct {
	Mode       Mode
	Ignore     ignore.Spec
	Extensions []string

	// Store and Upload are used in remote-store mode.
	Store  upload.Store
	Upload upload.Options

	// Embedder, ChunkSize and TopK are used in local-retrieval mode.
	Embedder  rag.Embedder
	ChunkSize int
	TopK      int

	InlineCharCap   int
	MaxContextChars int
	// RedactSecrets scrubs inlined file content. Files matching RedactPaths
	// are replaced entirely.
	RedactSecrets bool
	RedactPaths   []string
	Logger        diag.Logger
}

// Stats summarizes Prepare.
type Stats struct {
	Mode      Mode `json:"mode"`
	Collected int  `json:"collected"`
	Read      int  `json:"read"`
	Chunks    int  `json:"chunks"`
	Uploaded  int  `json:"uploaded"`
	Failed    int  `json:"failed"`
	Pending   int  `json:"pending"`
}

// Payload is the context handed to a provider.
type Payload struct {
	Mode Mode
	// Text is the inlined context block for local-retrieval and full-inline.
	Text string
	// Handle and Files reference remote content in remote-store mode.
	Handle  *upload.Handle
	Files   []upload.Operation
	Sources []string
}

// Empty reports whether the payload carries no context at all.
func (p Payload) Empty() bool {
	return p.Text == "" && len(p.Files) == 0
}

// Assembler prepares and assembles context for a single run.
type Assembler struct {
	opts Options
	log  diag.Logger

	root     string
	records  []collect.FileRecord
	index    *rag.Index
	handle   *upload.Handle
	ops      []upload.Operation
	released bool
}

// New validates opts and returns an Assembler.
func New(opts Options) (*Assembler, error) {
	switch opts.Mode {
	case ModeDiffOnly, ModeFullInline:
	case ModeRemoteStore:
		if opts.Store == nil {
			return nil, errors.New("remote-store mode requires a context store")
		}
	case ModeLocalRetrieval:
		if opts.Embedder == nil {
			return nil, errors.New("local-retrieval mode requires an embedder")
		}
	default:
		return nil, fmt.Errorf("unknown context mode %q", opts.Mode)
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.InlineCharCap <= 0 {
		opts.InlineCharCap = DefaultInlineCharCap
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultMaxContextChars
	}
	log := diag.OrNop(opts.Logger)
	if opts.Upload.Logger == nil {
		opts.Upload.Logger = log
	}
	return &Assembler{opts: opts, log: log}, nil
}

// Mode returns the configured mode.
func (a *Assembler) Mode() Mode { return a.opts.Mode }

// Prepare collects files under root and, depending on the mode, uploads or
// indexes them. In remote-store mode a batch timeout is returned as an error
// wrapping upload.ErrBatchTimeout; Release must still be called.
func (a *Assembler) Prepare(ctx context.Context, root string) (Stats, error) {
	stats := Stats{Mode: a.opts.Mode}
	a.root = root
	if a.opts.Mode == ModeDiffOnly {
		return stats, nil
	}

	paths, err := collect.Collect(root, a.opts.Ignore, collect.Options{
		Extensions: a.opts.Extensions,
		Logger:     a.log,
	})
	if err != nil {
		return stats, err
	}
	stats.Collected = len(paths)
	a.log.Infof("collected %d source files under %s", len(paths), root)

	switch a.opts.Mode {
	case ModeRemoteStore:
		return a.prepareRemote(ctx, paths, stats)
	case ModeLocalRetrieval:
		a.records = collect.Read(paths, a.log)
		stats.Read = len(a.records)
		idx, err := rag.Build(ctx, a.opts.Embedder, a.redacted(a.records), rag.BuildOptions{
			ChunkSize: a.opts.ChunkSize,
			Logger:    a.log,
		})
		if err != nil {
			return stats, fmt.Errorf("building context index: %w", err)
		}
		a.index = idx
		stats.Chunks = idx.Len()
	case ModeFullInline:
		a.records = collect.Read(paths, a.log)
		stats.Read = len(a.records)
	}
	return stats, nil
}

func (a *Assembler) prepareRemote(ctx context.Context, paths []string, stats Stats) (Stats, error) {
	h, err := a.opts.Store.Create(ctx)
	if err != nil {
		return stats, fmt.Errorf("creating context store: %w", err)
	}
	a.handle = &h

	uopts := a.opts.Upload
	if a.opts.RedactSecrets {
		uopts.Open = a.openRedacted
	}
	res, err := upload.NewCoordinator(a.opts.Store, uopts).Upload(ctx, h, paths)
	a.ops = res.Operations
	stats.Uploaded = len(res.Operations)
	stats.Failed = len(res.Failures)
	stats.Pending = len(res.Pending) + len(res.Unsent)
	if err != nil {
		return stats, fmt.Errorf("uploading context: %w", err)
	}
	return stats, nil
}

// Assemble builds the payload for diff.
func (a *Assembler) Assemble(ctx context.Context, diff string) (Payload, error) {
	p := Payload{Mode: a.opts.Mode}
	switch a.opts.Mode {
	case ModeDiffOnly:
		return p, nil
	case ModeRemoteStore:
		p.Handle = a.handle
		for _, op := range a.ops {
			rel := a.rel(op.Path)
			if a.dropExcluded(rel) {
				continue
			}
			p.Files = append(p.Files, op)
			p.Sources = append(p.Sources, rel)
		}
		return p, nil
	case ModeLocalRetrieval:
		results, err := a.index.Search(ctx, diff, a.opts.TopK)
		if err != nil {
			return p, fmt.Errorf("retrieving context: %w", err)
		}
		entries := make([]entry, 0, len(results))
		for _, r := range results {
			entries = append(entries, entry{path: r.SourcePath, text: r.Text})
		}
		p.Text, p.Sources = a.render(entries)
		return p, nil
	case ModeFullInline:
		entries := make([]entry, 0, len(a.records))
		for _, r := range a.redacted(a.records) {
			entries = append(entries, entry{path: r.Path, text: r.Content})
		}
		p.Text, p.Sources = a.render(entries)
		return p, nil
	}
	return p, fmt.Errorf("unknown context mode %q", a.opts.Mode)
}

// Release deletes the remote store, if one was created. Failures are logged.
// It is safe to call more than once.
func (a *Assembler) Release(ctx context.Context) {
	if a.handle == nil || a.released {
		return
	}
	a.released = true
	if err := a.opts.Store.Delete(ctx, *a.handle, true); err != nil {
		a.log.Warnf("could not delete context store %s: %v", a.handle.ID, err)
		return
	}
	a.log.Infof("deleted context store %s", a.handle.ID)
}

type entry struct {
	path string
	text string
}

// render wraps each entry in a file tag. Each entry is cut to the per-file
// cap; entries that would push the block past the overall cap are dropped.
func (a *Assembler) render(entries []entry) (string, []string) {
	var (
		b       strings.Builder
		sources []string
		size    int
		skipped int
	)
	for _, e := range entries {
		rel := a.rel(e.path)
		if a.dropExcluded(rel) {
			continue
		}
		block := fmt.Sprintf("<file path='%s'>\n%s\n</file>", rel, truncate(e.text, a.opts.InlineCharCap))
		n := len([]rune(block))
		if size > 0 {
			n += 2
		}
		if size+n > a.opts.MaxContextChars {
			skipped++
			continue
		}
		if size > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		size += n
		sources = append(sources, rel)
	}
	if skipped > 0 {
		a.log.Warnf("context limit of %d characters reached, %d files left out", a.opts.MaxContextChars, skipped)
	}
	return b.String(), sources
}

func (a *Assembler) dropExcluded(rel string) bool {
	if a.opts.Ignore.Excluded(rel) {
		a.log.Warnf("dropping ignored path %s from context", rel)
		return true
	}
	return false
}

func (a *Assembler) rel(p string) string {
	if a.root == "" {
		return filepath.ToSlash(p)
	}
	r, err := filepath.Rel(a.root, p)
	if err != nil || strings.HasPrefix(r, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

func (a *Assembler) redacted(records []collect.FileRecord) []collect.FileRecord {
	if !a.opts.RedactSecrets {
		return records
	}
	out := make([]collect.FileRecord, len(records))
	for i, r := range records {
		out[i] = collect.FileRecord{Path: r.Path, Content: redact.Content(r.Content, a.rel(r.Path), a.opts.RedactPaths)}
	}
	return out
}

// openRedacted returns the content of p with secrets scrubbed, for upload.
func (a *Assembler) openRedacted(p string) (io.ReadCloser, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	clean := redact.Content(string(data), a.rel(p), a.opts.RedactPaths)
	return io.NopCloser(strings.NewReader(clean)), nil
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
