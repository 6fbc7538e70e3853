// Package dualview builds the dual representation of a source block: the
// original rendering, the derived rendering produced by a transformer, and
// a control that switches between them.
//
// Construction is pure. Build clones the block and returns a detached
// DualView; nothing in the page changes until Commit swaps the container in
// for the block. Toggle flips the visibility of both renderings so that
// exactly one is shown.
//
// The three historical variants of the widget (a button control, a div
// control, and a static stack with no control) are all expressed through
// Options.
package dualview
