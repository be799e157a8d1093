package diag

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Logger receives diagnostics. Implementations must be safe for concurrent use.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nop struct{}

func (nop) Infof(string, ...any)  {}
func (nop) Warnf(string, ...any)  {}
func (nop) Errorf(string, ...any) {}

// Nop discards everything.
var Nop Logger = nop{}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

// Console writes prefixed, colored lines to w. Info lines are only written
// when verbose is set.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	info    *color.Color
	warn    *color.Color
	err     *color.Color
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{
		w:       w,
		verbose: verbose,
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
	}
}

func (c *Console) Infof(format string, args ...any) {
	if !c.verbose {
		return
	}
	c.line(c.info, "info", format, args...)
}

func (c *Console) Warnf(format string, args ...any) {
	c.line(c.warn, "warning", format, args...)
}

func (c *Console) Errorf(format string, args ...any) {
	c.line(c.err, "error", format, args...)
}

func (c *Console) line(prefix *color.Color, level, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", prefix.Sprint(level+":"), msg)
}

// Entry is a single recorded diagnostic.
type Entry struct {
	Level   string
	Message string
}

// Recorder keeps diagnostics in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Infof(format string, args ...any)  { r.add("info", format, args...) }
func (r *Recorder) Warnf(format string, args ...any)  { r.add("warning", format, args...) }
func (r *Recorder) Errorf(format string, args ...any) { r.add("error", format, args...) }

func (r *Recorder) add(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of what has been recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns how many entries were recorded at level.
func (r *Recorder) Count(level string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
