package config

// File mirrors .codefox.yml. Pointer fields distinguish "unset" from the
// zero value so defaults apply only to keys the user left out.
type File struct {
	Provider *string      `mapstructure:"provider"`
	Model    *ModelFile   `mapstructure:"model"`
	Review   ReviewFile   `mapstructure:"review"`
	Baseline BaselineFile `mapstructure:"baseline"`
	Ruler    RulerFile    `mapstructure:"ruler"`
	Prompt   PromptFile   `mapstructure:"prompt"`
	Context  ContextFile  `mapstructure:"context"`
	Privacy  PrivacyFile  `mapstructure:"privacy"`
}

type ModelFile struct {
	Name        *string  `mapstructure:"name"`
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   *int     `mapstructure:"max_tokens"`
	Timeout     *int     `mapstructure:"timeout"`
	BaseURL     *string  `mapstructure:"base_url"`
	Embedding   *string  `mapstructure:"embedding"`
}

type ReviewFile struct {
	Severity     *string `mapstructure:"severity"`
	MaxIssues    *int    `mapstructure:"max_issues"`
	SuggestFixes *bool   `mapstructure:"suggest_fixes"`
	DiffOnly     *bool   `mapstructure:"diff_only"`
	MaxDiffBytes *int    `mapstructure:"max_diff_bytes"`
}

type BaselineFile struct {
	Enable *bool `mapstructure:"enable"`
}

type RulerFile struct {
	Security    *bool `mapstructure:"security"`
	Performance *bool `mapstructure:"performance"`
	Style       *bool `mapstructure:"style"`
}

type PromptFile struct {
	System *string `mapstructure:"system"`
	Extra  *string `mapstructure:"extra"`
}

// ContextFile holds the context-indexing knobs. Durations are in seconds.
type ContextFile struct {
	Mode            *string  `mapstructure:"mode"`
	ChunkSize       *int     `mapstructure:"chunk_size"`
	TopK            *int     `mapstructure:"top_k"`
	UploadWorkers   *int     `mapstructure:"upload_workers"`
	UploadTimeout   *int     `mapstructure:"upload_timeout"`
	PollInterval    *int     `mapstructure:"poll_interval"`
	InlineCharCap   *int     `mapstructure:"inline_char_cap"`
	MaxContextChars *int     `mapstructure:"max_context_chars"`
	Extensions      []string `mapstructure:"extensions"`
	IgnoreFile      *string  `mapstructure:"ignore_file"`
}

type PrivacyFile struct {
	RedactSecrets *bool    `mapstructure:"redact_secrets"`
	RedactPaths   []string `mapstructure:"redact_paths"`
}

// Env carries secrets resolved outside .codefox.yml.
type Env struct {
	APIKey string
}
