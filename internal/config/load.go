package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envKeys are the scalar keys that may be overridden with CODEFOX_ variables.
var envKeys = []string{
	"provider",
	"model.name",
	"model.temperature",
	"model.max_tokens",
	"model.timeout",
	"model.base_url",
	"model.embedding",
	"review.severity",
	"review.max_issues",
	"review.diff_only",
	"review.max_diff_bytes",
	"context.mode",
	"context.top_k",
	"context.upload_timeout",
	"privacy.redact_secrets",
}

// LoadOptions locates the configuration sources.
type LoadOptions struct {
	// Dir is the repository root holding .codefox.yml and .codefoxenv.
	Dir string
	// File overrides the path of .codefox.yml.
	File string
	// Overrides are applied last, keyed by dotted config key
	// (e.g. "model.name", "context.mode").
	Overrides map[string]string
	// LookupEnv resolves the API key when .codefoxenv does not set it.
	// Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Path returns the config file path Load would read.
func (o LoadOptions) Path() string {
	if o.File != "" {
		return o.File
	}
	return filepath.Join(o.Dir, FileName)
}

// Load reads .codefox.yml, environment overrides and .codefoxenv, then
// validates the result with New.
func Load(opts LoadOptions) (Config, error) {
	f, err := ReadFile(opts)
	if err != nil {
		return Config{}, err
	}
	env, err := ReadEnv(opts)
	if err != nil {
		return Config{}, err
	}
	return New(f, env)
}

// ReadFile reads the raw, unvalidated configuration.
func ReadFile(opts LoadOptions) (File, error) {
	path := opts.Path()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s (run codefox init)", ErrNotFound, path)
		}
		return File{}, fmt.Errorf("reading config file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CODEFOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return File{}, fmt.Errorf("binding env for %s: %w", k, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return File{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for k, val := range opts.Overrides {
		if val != "" {
			v.Set(k, val)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return f, nil
}

// ReadEnv resolves the API key from .codefoxenv or the process environment.
func ReadEnv(opts LoadOptions) (Env, error) {
	vals, err := godotenv.Read(filepath.Join(opts.Dir, EnvFileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("reading %s: %w", EnvFileName, err)
	}
	if key := strings.TrimSpace(vals[APIKeyVar]); key != "" {
		return Env{APIKey: key}, nil
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	key, _ := lookup(APIKeyVar)
	return Env{APIKey: key}, nil
}
