package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"

	"github.com/dshills/codefox/internal/upload"
)

type spin interface {
	Start()
	Stop()
	Active() bool
	Lock()
	Unlock()
	// SetSuffix replaces the text after the spinner. Callers hold the lock
	// while the spinner runs.
	SetSuffix(string)
}

type ticker struct{ *spinner.Spinner }

func (t ticker) SetSuffix(s string) { t.Suffix = s }

// progress shows a spinner while the review runs. A disabled progress only
// passes writes through. Diagnostics go through Write so they never land on
// the spinner line.
type progress struct {
	w     io.Writer
	s     spin
	label string
}

func newProgress(w io.Writer, enabled bool) *progress {
	if !enabled {
		return &progress{w: w}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	return &progress{w: w, s: ticker{s}}
}

func (p *progress) Start(label string) {
	if p.s == nil {
		return
	}
	p.label = label
	p.s.SetSuffix(" " + label)
	p.s.Start()
}

// Upload reports context upload progress in the spinner suffix.
func (p *progress) Upload(pr upload.Progress) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.SetSuffix(fmt.Sprintf(" %s: %s context %d/%d", p.label, pr.Phase, pr.Done, pr.Total))
	p.s.Unlock()
}

// Write clears the spinner, writes b and restarts the spinner.
func (p *progress) Write(b []byte) (int, error) {
	if p.s == nil || !p.s.Active() {
		return p.w.Write(b)
	}
	p.s.Stop()
	defer p.s.Start()
	return p.w.Write(b)
}

func (p *progress) Stop() {
	if p.s == nil {
		return
	}
	p.s.Stop()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
