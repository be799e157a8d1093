// Package redact removes secrets from diffs and file content before anything
// is sent to a model provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS credentials, bearer tokens, and provider tokens
// (Google, OpenRouter, OpenAI, GitHub, Slack). Files whose paths match a
// configured glob, such as .env files, are replaced wholesale.
package redact
