package redact

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// DefaultPaths are path globs whose content is never sent.
var DefaultPaths = []string{"**/.env", "**/.codefoxenv", "**/*secrets*"}

var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	// Google API keys (Gemini)
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	// OpenRouter keys must be tried before the generic OpenAI shape.
	regexp.MustCompile(`sk-or-v1-[0-9A-Za-z]{32,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Environment-file style assignment of the codefox key itself
	regexp.MustCompile(`CODEFOX_API_KEY\s*=\s*\S+`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// ShouldRedactPath checks if a file path matches any of the redaction path
// patterns. A leading "**/" matches at any depth.
func ShouldRedactPath(p string, patterns []string) bool {
	p = filepath.ToSlash(p)
	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, p); err == nil && matched {
			return true
		}
		if clean, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matched, err := path.Match(clean, path.Base(p)); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// Content redacts secrets from content, or replaces it entirely when path
// matches one of redactPaths.
func Content(content, p string, redactPaths []string) string {
	if ShouldRedactPath(p, redactPaths) {
		return placeholder + " (file content redacted by path policy)\n"
	}
	return Secrets(content)
}

// Diff redacts secrets in a unified diff. Sections for files that match
// redactPaths keep their header and lose their hunks.
func Diff(diff string, redactPaths []string) string {
	if len(redactPaths) == 0 {
		return Secrets(diff)
	}
	var b strings.Builder
	for _, section := range splitSections(diff) {
		p := sectionPath(section)
		if p != "" && ShouldRedactPath(p, redactPaths) {
			header, _, _ := strings.Cut(section, "\n")
			b.WriteString(header)
			b.WriteString("\n" + placeholder + " (diff redacted by path policy)\n")
			continue
		}
		b.WriteString(Secrets(section))
	}
	return b.String()
}

func splitSections(diff string) []string {
	var sections []string
	rest := diff
	for {
		i := strings.Index(rest[min(1, len(rest)):], "\ndiff --git ")
		if i < 0 {
			sections = append(sections, rest)
			return sections
		}
		cut := i + min(1, len(rest)) + 1
		sections = append(sections, rest[:cut])
		rest = rest[cut:]
	}
}

func sectionPath(section string) string {
	header, _, _ := strings.Cut(section, "\n")
	if !strings.HasPrefix(header, "diff --git ") {
		return ""
	}
	if i := strings.LastIndex(header, " b/"); i >= 0 {
		return header[i+3:]
	}
	return ""
}
