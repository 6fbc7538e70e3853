// Package report writes run summaries.
//
// Writers:
//   - TextWriter: human-readable terminal output, optionally coloured
//   - JSONWriter: structured output for tool integration
//   - MarkdownWriter: a Markdown document for sharing or CI job summaries
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
