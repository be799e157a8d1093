// Package prompt assembles the system and user messages sent to the model.
//
// The system prompt is built from sections switched on by the review policy;
// a custom system prompt replaces the built-in sections but still receives
// the policy block.
package prompt
