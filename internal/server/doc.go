// Package server serves a directory over HTTP and processes HTML and
// Markdown pages on request, so a documentation tree can be previewed with
// dual views without a build step.
package server
