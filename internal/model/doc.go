// Package model defines the data structures shared by the codeflip packages.
//
// This package contains the following main types:
//   - Page: a document being processed, with its parsed HTML tree
//   - Report: the result of processing one page
//   - Summary: the aggregate of many page reports for one run
//
// The reports serialize to JSON for the report writers and the run history
// stored in the database.
package model
