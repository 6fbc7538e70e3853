// Package transform defines the Transformer contract used to turn the text
// of a source block into its derived representation, together with the
// implementations codeflip ships: a function adapter, an external command
// runner and a caching decorator.
//
// A transformer either returns the derived text or fails. Callers only look
// at whether a failure happened; CompilationError exists so that operational
// faults (a missing compiler binary, a timeout) can be told apart from bad
// input in logs.
package transform
