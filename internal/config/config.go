package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dshills/codefox/internal/collect"
	"github.com/dshills/codefox/internal/contextpack"
	"github.com/dshills/codefox/internal/ignore"
	"github.com/dshills/codefox/internal/prompt"
	"github.com/dshills/codefox/internal/redact"
)

const (
	FileName    = ".codefox.yml"
	EnvFileName = ".codefoxenv"
	APIKeyVar   = "CODEFOX_API_KEY"
)

const (
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
	ProviderOllama = "ollama"
)

// KnownProviders lists the supported provider names in display order.
var KnownProviders = []string{ProviderGemini, ProviderQwen, ProviderOllama}

// Severities accepted by review.severity, lowest first.
var Severities = []string{"low", "medium", "high", "critical"}

// ErrNotFound is returned by Load when the repository has no .codefox.yml.
var ErrNotFound = errors.New("config file not found")

// ValidationError reports an invalid or missing configuration key.
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Msg
}

func invalid(key, format string, args ...any) *ValidationError {
	return &ValidationError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// Config is the validated, fully defaulted configuration for one run.
// Build it with New or Load; it is not modified afterwards.
type Config struct {
	Provider string        `yaml:"provider"`
	Model    ModelConfig   `yaml:"model"`
	Review   ReviewConfig  `yaml:"review"`
	Baseline bool          `yaml:"baseline"`
	Ruler    RulerConfig   `yaml:"ruler"`
	Prompt   PromptConfig  `yaml:"prompt"`
	Context  ContextConfig `yaml:"context"`
	Privacy  PrivacyConfig `yaml:"privacy"`

	APIKey string `yaml:"-"`
}

type ModelConfig struct {
	Name        string        `yaml:"name"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	Embedding   string        `yaml:"embedding"`
}

type ReviewConfig struct {
	Severity     string `yaml:"severity,omitempty"`
	MaxIssues    int    `yaml:"max_issues,omitempty"`
	SuggestFixes bool   `yaml:"suggest_fixes"`
	DiffOnly     bool   `yaml:"diff_only"`
	MaxDiffBytes int    `yaml:"max_diff_bytes"`
}

type RulerConfig struct {
	Security    bool `yaml:"security"`
	Performance bool `yaml:"performance"`
	Style       bool `yaml:"style"`
}

type PromptConfig struct {
	System string `yaml:"system,omitempty"`
	Extra  string `yaml:"extra,omitempty"`
}

type ContextConfig struct {
	Mode            contextpack.Mode `yaml:"mode"`
	ChunkSize       int              `yaml:"chunk_size"`
	TopK            int              `yaml:"top_k"`
	UploadWorkers   int              `yaml:"upload_workers"`
	UploadTimeout   time.Duration    `yaml:"upload_timeout"`
	PollInterval    time.Duration    `yaml:"poll_interval"`
	InlineCharCap   int              `yaml:"inline_char_cap"`
	MaxContextChars int              `yaml:"max_context_chars"`
	Extensions      []string         `yaml:"extensions"`
	IgnoreFile      string           `yaml:"ignore_file"`
}

type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redact_secrets"`
	RedactPaths   []string `yaml:"redact_paths"`
}

// Defaults shared by every provider.
const (
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 4000
	DefaultModelTimeout    = 600 * time.Second
	DefaultChunkSize       = 800
	DefaultUploadWorkers   = 10
	DefaultUploadTimeout   = 600 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxDiffBytes    = 500000
	DefaultInlineCharCap   = contextpack.DefaultInlineCharCap
	DefaultMaxContextChars = contextpack.DefaultMaxContextChars
)

type providerDefaults struct {
	model     string
	baseURL   string
	embedding string
	topK      int
	mode      contextpack.Mode
	needsKey  bool
}

var defaultsByProvider = map[string]providerDefaults{
	ProviderGemini: {
		model:     "gemini-2.5-flash",
		embedding: "gemini-embedding-001",
		topK:      5,
		mode:      contextpack.ModeRemoteStore,
		needsKey:  true,
	},
	ProviderQwen: {
		model:     "qwen/qwen3-vl-30b-a3b-thinking",
		baseURL:   "https://openrouter.ai/api/v1",
		embedding: "text-embedding-3-small",
		topK:      8,
		mode:      contextpack.ModeLocalRetrieval,
		needsKey:  true,
	},
	ProviderOllama: {
		model:     "gemma3:12b",
		baseURL:   "https://ollama.com",
		embedding: "nomic-embed-text",
		topK:      5,
		mode:      contextpack.ModeLocalRetrieval,
	},
}

// DefaultModel returns the model written by init for provider.
func DefaultModel(provider string) string {
	return defaultsByProvider[strings.ToLower(provider)].model
}

// New validates f and env and returns the effective Config.
func New(f File, env Env) (Config, error) {
	provider := ProviderGemini
	if f.Provider != nil {
		provider = strings.ToLower(strings.TrimSpace(*f.Provider))
	}
	pd, ok := defaultsByProvider[provider]
	if !ok {
		return Config{}, invalid("provider", "unknown provider %q (want one of %s)", provider, strings.Join(KnownProviders, ", "))
	}

	if f.Model == nil {
		return Config{}, invalid("model", "Missing required key 'model'")
	}
	if f.Model.Name == nil {
		return Config{}, invalid("model.name", "Missing required key 'name' in 'model'")
	}
	name := strings.TrimSpace(*f.Model.Name)
	if name == "" {
		return Config{}, invalid("model.name", "model name cannot be empty")
	}

	cfg := Config{
		Provider: provider,
		Model: ModelConfig{
			Name:        name,
			Temperature: floatOr(f.Model.Temperature, DefaultTemperature),
			MaxTokens:   intOr(f.Model.MaxTokens, DefaultMaxTokens),
			Timeout:     secondsOr(f.Model.Timeout, DefaultModelTimeout),
			BaseURL:     strings.TrimRight(strOr(f.Model.BaseURL, pd.baseURL), "/"),
			Embedding:   strOr(f.Model.Embedding, pd.embedding),
		},
		Review: ReviewConfig{
			Severity:     strings.ToLower(strOr(f.Review.Severity, "")),
			MaxIssues:    intOr(f.Review.MaxIssues, 0),
			SuggestFixes: boolOr(f.Review.SuggestFixes, true),
			DiffOnly:     boolOr(f.Review.DiffOnly, false),
			MaxDiffBytes: intOr(f.Review.MaxDiffBytes, DefaultMaxDiffBytes),
		},
		Baseline: boolOr(f.Baseline.Enable, false),
		Ruler: RulerConfig{
			Security:    boolOr(f.Ruler.Security, true),
			Performance: boolOr(f.Ruler.Performance, true),
			Style:       boolOr(f.Ruler.Style, true),
		},
		Prompt: PromptConfig{
			System: strOr(f.Prompt.System, ""),
			Extra:  strOr(f.Prompt.Extra, ""),
		},
		Context: ContextConfig{
			ChunkSize:       intOr(f.Context.ChunkSize, DefaultChunkSize),
			TopK:            intOr(f.Context.TopK, pd.topK),
			UploadWorkers:   intOr(f.Context.UploadWorkers, DefaultUploadWorkers),
			UploadTimeout:   secondsOr(f.Context.UploadTimeout, DefaultUploadTimeout),
			PollInterval:    secondsOr(f.Context.PollInterval, DefaultPollInterval),
			InlineCharCap:   intOr(f.Context.InlineCharCap, DefaultInlineCharCap),
			MaxContextChars: intOr(f.Context.MaxContextChars, DefaultMaxContextChars),
			Extensions:      collect.NormalizeExtensions(append(slices.Clone(collect.DefaultExtensions), f.Context.Extensions...)),
			IgnoreFile:      strOr(f.Context.IgnoreFile, ignore.FileName),
		},
		Privacy: PrivacyConfig{
			RedactSecrets: boolOr(f.Privacy.RedactSecrets, true),
			RedactPaths:   slices.Clone(redact.DefaultPaths),
		},
		APIKey: strings.TrimSpace(env.APIKey),
	}
	if len(f.Privacy.RedactPaths) > 0 {
		cfg.Privacy.RedactPaths = slices.Clone(f.Privacy.RedactPaths)
	}

	mode, err := resolveMode(f.Context.Mode, cfg.Review.DiffOnly, provider, pd.mode)
	if err != nil {
		return Config{}, err
	}
	cfg.Context.Mode = mode

	if err := cfg.validate(pd); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveMode(raw *string, diffOnly bool, provider string, def contextpack.Mode) (contextpack.Mode, error) {
	if diffOnly {
		return contextpack.ModeDiffOnly, nil
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return def, nil
	}
	mode, err := contextpack.ParseMode(strings.TrimSpace(*raw))
	if err != nil {
		return "", invalid("context.mode", "%v", err)
	}
	if mode == contextpack.ModeRemoteStore && provider != ProviderGemini {
		return "", invalid("context.mode", "context mode %s is only available with provider %s", mode, ProviderGemini)
	}
	return mode, nil
}

func (c Config) validate(pd providerDefaults) error {
	switch {
	case c.Model.Temperature < 0 || c.Model.Temperature > 2:
		return invalid("model.temperature", "temperature must be between 0 and 2, got %g", c.Model.Temperature)
	case c.Model.MaxTokens <= 0:
		return invalid("model.max_tokens", "max_tokens must be positive")
	case c.Model.Timeout <= 0:
		return invalid("model.timeout", "timeout must be positive")
	case c.Review.MaxIssues < 0:
		return invalid("review.max_issues", "max_issues cannot be negative")
	case c.Review.MaxDiffBytes <= 0:
		return invalid("review.max_diff_bytes", "max_diff_bytes must be positive")
	case c.Context.ChunkSize <= 0:
		return invalid("context.chunk_size", "chunk_size must be positive")
	case c.Context.TopK <= 0:
		return invalid("context.top_k", "top_k must be positive")
	case c.Context.UploadWorkers <= 0:
		return invalid("context.upload_workers", "upload_workers must be positive")
	case c.Context.UploadTimeout <= 0:
		return invalid("context.upload_timeout", "upload_timeout must be positive")
	case c.Context.PollInterval <= 0:
		return invalid("context.poll_interval", "poll_interval must be positive")
	case c.Context.InlineCharCap <= 0:
		return invalid("context.inline_char_cap", "inline_char_cap must be positive")
	case c.Context.MaxContextChars <= 0:
		return invalid("context.max_context_chars", "max_context_chars must be positive")
	}
	if c.Review.Severity != "" && !slices.Contains(Severities, c.Review.Severity) {
		return invalid("review.severity", "unknown severity %q (want one of %s)", c.Review.Severity, strings.Join(Severities, ", "))
	}
	if c.Provider == ProviderQwen && !strings.Contains(strings.ToLower(c.Model.Name), "qwen") {
		return invalid("model.name", "model %q is not a qwen model", c.Model.Name)
	}
	if pd.needsKey && c.APIKey == "" {
		return invalid(APIKeyVar, "%s is required for provider %s (run codefox init)", APIKeyVar, c.Provider)
	}
	return nil
}

// Policy returns the prompt policy derived from the review settings.
func (c Config) Policy() prompt.Policy {
	return prompt.Policy{
		System:       c.Prompt.System,
		Extra:        c.Prompt.Extra,
		Security:     c.Ruler.Security,
		Performance:  c.Ruler.Performance,
		Style:        c.Ruler.Style,
		DiffOnly:     c.Review.DiffOnly,
		Baseline:     c.Baseline,
		Severity:     c.Review.Severity,
		MaxIssues:    c.Review.MaxIssues,
		SuggestFixes: c.Review.SuggestFixes,
	}
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return strings.TrimSpace(*p)
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func secondsOr(p *int, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return time.Duration(*p) * time.Second
}
