// Package footnote appends a printable "References" list for the outbound
// links of a page. Each qualifying link gets a print-only " [n]" marker and
// the list holds the fully-qualified targets in encounter order, so a
// printed page still shows where its links point.
package footnote
