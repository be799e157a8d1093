// Package review runs one review session against a provider.
//
// [Run] redacts the diff, checks the provider connection, prepares codebase
// context, executes the model call and always removes the context afterwards.
// The result is a [Report] that the output package renders.
//
// The model answers in free text. [Verdict] classifies an answer as clean
// when it is one of the agreed no-issue replies.
package review
