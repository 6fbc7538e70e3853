// Package markdown renders Markdown inputs into standalone HTML pages so
// they can go through the same pipeline as HTML inputs.
//
// Raw HTML in the source is kept, so marker elements written next to a
// fenced block survive rendering. The body is wrapped in a container whose
// id matches the default footnote root.
package markdown
