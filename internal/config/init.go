package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codefox/internal/ignore"
)

// MinAPIKeyLength is the shortest API key init accepts.
const MinAPIKeyLength = 30

const apiKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="

// ValidateAPIKey rejects keys that are too short or use characters outside
// the base64 alphabet.
func ValidateAPIKey(key string) error {
	if len(key) < MinAPIKeyLength {
		return fmt.Errorf("API key is too short (need at least %d characters)", MinAPIKeyLength)
	}
	if i := strings.IndexFunc(key, func(r rune) bool { return !strings.ContainsRune(apiKeyAlphabet, r) }); i >= 0 {
		return fmt.Errorf("API key contains invalid character %q", key[i])
	}
	return nil
}

// InitOptions configures Init.
type InitOptions struct {
	Dir      string
	Provider string
	// Model defaults to the provider's default model.
	Model string
	// APIKey may be empty for ollama, which is then written as "null".
	APIKey string
	// Force overwrites existing .codefox.yml and .codefoxenv files.
	Force bool
}

// InitResult lists the files Init touched, relative to Dir.
type InitResult struct {
	Written []string
	Skipped []string
}

type scaffold struct {
	Provider string `yaml:"provider"`
	Model    struct {
		Name        string  `yaml:"name"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
		Timeout     int     `yaml:"timeout"`
	} `yaml:"model"`
	Review struct {
		Severity     string `yaml:"severity"`
		MaxIssues    *int   `yaml:"max_issues"`
		SuggestFixes bool   `yaml:"suggest_fixes"`
		DiffOnly     bool   `yaml:"diff_only"`
	} `yaml:"review"`
	Baseline struct {
		Enable bool `yaml:"enable"`
	} `yaml:"baseline"`
	Ruler struct {
		Security    bool `yaml:"security"`
		Performance bool `yaml:"performance"`
		Style       bool `yaml:"style"`
	} `yaml:"ruler"`
	Prompt struct {
		System *string `yaml:"system"`
		Extra  *string `yaml:"extra"`
	} `yaml:"prompt"`
}

// Init writes .codefox.yml, .codefoxenv and .codefoxignore into opts.Dir and
// makes sure .codefoxenv is listed in .gitignore.
func Init(opts InitOptions) (InitResult, error) {
	var res InitResult
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if !slices.Contains(KnownProviders, provider) {
		return res, invalid("provider", "unknown provider %q (want one of %s)", opts.Provider, strings.Join(KnownProviders, ", "))
	}
	key := strings.TrimSpace(opts.APIKey)
	if key == "" && provider == ProviderOllama {
		key = "null"
	} else if err := ValidateAPIKey(key); err != nil {
		return res, err
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel(provider)
	}

	var sc scaffold
	sc.Provider = provider
	sc.Model.Name = model
	sc.Model.Temperature = DefaultTemperature
	sc.Model.MaxTokens = DefaultMaxTokens
	sc.Model.Timeout = int(DefaultModelTimeout.Seconds())
	sc.Review.Severity = "high"
	sc.Review.SuggestFixes = true
	sc.Baseline.Enable = true
	sc.Ruler.Security = true
	sc.Ruler.Performance = true
	sc.Ruler.Style = true
	data, err := yaml.Marshal(&sc)
	if err != nil {
		return res, fmt.Errorf("marshaling %s: %w", FileName, err)
	}

	write := func(name string, force bool, fn func(path string) error) error {
		path := filepath.Join(opts.Dir, name)
		if !force && exists(path) {
			res.Skipped = append(res.Skipped, name)
			return nil
		}
		if err := fn(path); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		res.Written = append(res.Written, name)
		return nil
	}

	if err := write(FileName, opts.Force, func(p string) error {
		return os.WriteFile(p, data, 0o644)
	}); err != nil {
		return res, err
	}
	if err := write(EnvFileName, opts.Force, func(p string) error {
		if err := godotenv.Write(map[string]string{APIKeyVar: key}, p); err != nil {
			return err
		}
		return os.Chmod(p, 0o600)
	}); err != nil {
		return res, err
	}
	if err := write(ignore.FileName, false, func(p string) error {
		return os.WriteFile(p, []byte(ignore.DefaultFile()), 0o644)
	}); err != nil {
		return res, err
	}

	added, err := ensureGitignore(filepath.Join(opts.Dir, ".gitignore"), EnvFileName)
	if err != nil {
		return res, err
	}
	if added {
		res.Written = append(res.Written, ".gitignore")
	}
	return res, nil
}

func ensureGitignore(path, entry string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return false, nil
		}
	}
	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("opening .gitignore: %w", err)
	}
	if _, err := f.WriteString(prefix + entry + "\n"); err != nil {
		f.Close()
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}
	return true, f.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
