package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// FileName is the ignore file looked up at the repository root.
const FileName = ".codefoxignore"

// DefaultSkipDirs are directory basenames that are never descended into.
var DefaultSkipDirs = []string{
	".git",
	"__pycache__",
	"node_modules",
	".venv",
	".mypy_cache",
	".pytest_cache",
	".tox",
}

// DefaultFragments is what `codefox init` writes to a fresh ignore file.
var DefaultFragments = []string{
	"node_modules/",
	"vendor/",
	".git/",
	"__pycache__/",
	".env",
}

// Spec is the resolved ignore set. The zero value excludes nothing and skips
// only DefaultSkipDirs.
type Spec struct {
	fragments []string
	skipDirs  []string
}

// New builds a Spec from already-parsed fragments. Empty fragments are dropped
// since they would match every path.
func New(fragments ...string) Spec {
	s := Spec{skipDirs: DefaultSkipDirs}
	for _, f := range fragments {
		if f != "" {
			s.fragments = append(s.fragments, f)
		}
	}
	return s
}

// Load reads the ignore file at p. A missing file is not an error and yields
// a Spec holding only the built-in skip directories.
func Load(p string) (Spec, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return Spec{}, fmt.Errorf("reading ignore file %s: %w", p, err)
	}
	frags, err := Parse(data)
	if err != nil {
		return Spec{}, fmt.Errorf("parsing ignore file %s: %w", p, err)
	}
	return New(frags...), nil
}

// Parse splits ignore-file content into fragments, in file order.
func Parse(data []byte) ([]string, error) {
	var frags []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		frags = append(frags, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return frags, nil
}

// Fragments returns the user fragments in load order.
func (s Spec) Fragments() []string {
	return slices.Clone(s.fragments)
}

// Excluded reports whether any user fragment is a substring of p. Separators
// are normalised to '/' before matching; nothing else is.
func (s Spec) Excluded(p string) bool {
	p = filepath.ToSlash(p)
	for _, f := range s.fragments {
		if strings.Contains(p, f) {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory at p must not be descended into:
// its basename is a built-in skip name, or a fragment matches the directory
// path. The path is also tested with a trailing slash so that a fragment such
// as "vendor/" prunes the vendor directory itself.
func (s Spec) SkipDir(p string) bool {
	p = filepath.ToSlash(p)
	skip := s.skipDirs
	if skip == nil {
		skip = DefaultSkipDirs
	}
	if slices.Contains(skip, path.Base(p)) {
		return true
	}
	return s.Excluded(p) || s.Excluded(p+"/")
}

// DefaultFile renders DefaultFragments in ignore-file form.
func DefaultFile() string {
	return strings.Join(DefaultFragments, "\n") + "\n"
}
