package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dshills/codefox/internal/diag"
	"github.com/dshills/codefox/internal/ignore"
)

// DefaultExtensions is the source-code allow-list. Matching is
// case-insensitive on the dot-extension.
var DefaultExtensions = []string{
	".py", ".js", ".java", ".cpp", ".c", ".cs", ".go", ".rb", ".php", ".ts", ".swift",
}

// Options tunes a walk.
type Options struct {
	// Extensions replaces DefaultExtensions when non-empty.
	Extensions []string
	Logger     diag.Logger
}

// FileRecord is a file read for one run.
type FileRecord struct {
	Path    string
	Content string
}

// NormalizeExtensions lowercases exts and ensures each carries a leading dot.
// Duplicates and empty entries are dropped.
func NormalizeExtensions(exts []string) []string {
	var out []string
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || e == "." {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// Collect walks root in lexical order and returns the paths of files whose
// extension is allowed and which the ignore spec does not exclude. Returned
// paths are root-joined. Ignore rules are applied to the path relative to
// root, so the location of the checkout never affects matching.
//
// Unreadable subdirectories are reported through opts.Logger and skipped.
// Only a failure to read root itself is returned as an error.
func Collect(root string, spec ignore.Spec, opts Options) ([]string, error) {
	log := diag.OrNop(opts.Logger)
	exts := NormalizeExtensions(opts.Extensions)
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collecting files: %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			rel = p
		}
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			log.Warnf("skipping %s: %v", p, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && spec.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}
		if spec.Excluded(rel) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}
	return files, nil
}

// Read loads each path. Files that cannot be read are skipped with a warning.
// Invalid UTF-8 sequences are dropped.
func Read(paths []string, log diag.Logger) []FileRecord {
	log = diag.OrNop(log)
	records := make([]FileRecord, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Warnf("skipping unreadable file %s: %v", p, err)
			continue
		}
		records = append(records, FileRecord{
			Path:    p,
			Content: strings.ToValidUTF8(string(data), ""),
		})
	}
	return records
}
