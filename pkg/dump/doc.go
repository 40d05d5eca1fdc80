// Package dump parses the textual output of JVM stack-dump utilities into an
// immutable in-memory model of threads and their lock relations.
//
// The input format is loosely structured prose: thread blocks with optional
// decorations, stack frames that only appear in verbose dumps, and preamble
// and trailer sections that vary between tool versions. The parser recognizes
// all of these without a mode flag, skips what is out of scope (stack frame
// content, derived deadlock summaries), and fails hard with a byte offset and
// expectation message on anything it does not recognize.
package dump
