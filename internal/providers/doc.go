// Package providers implements the Provider interface for each supported
// model backend.
//
// Supported providers: Gemini (genai SDK, Files API context store), Qwen
// through an OpenAI-compatible endpoint such as OpenRouter, and Ollama.
//
// The set is closed: [New] selects a constructor from a fixed name table.
// HTTP-based providers share a retry helper with exponential back-off on
// rate limits and server errors. HTTP clients are injected through [Deps] so
// that tests can redirect calls to local httptest servers.
package providers
