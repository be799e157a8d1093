// Package config loads the codefox configuration for a repository.
//
// Sources, highest precedence first:
//  1. CLI flag overrides passed to [Load]
//  2. Environment variables prefixed CODEFOX_ (CODEFOX_PROVIDER,
//     CODEFOX_MODEL_NAME, CODEFOX_CONTEXT_MODE, ...)
//  3. The repository's .codefox.yml
//  4. Built-in defaults
//
// The API key comes from .codefoxenv, falling back to the process
// environment. [New] validates the raw sources and returns an immutable
// [Config]; [Init] scaffolds the configuration files for a repository.
package config
